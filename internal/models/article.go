package models

import "time"

type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

var ArticleStatuses = []ArticleStatus{
	ArticleStatusDraft,
	ArticleStatusPublished,
	ArticleStatusArchived,
}

func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleStatusDraft, ArticleStatusPublished, ArticleStatusArchived:
		return true
	}
	return false
}

type Image struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

type Article struct {
	ID                 string
	UserID             string
	Title              string
	Slug               string
	Content            string
	Excerpt            string
	CoverImage         string
	Images             []Image
	Tags               []string
	Category           string
	Status             ArticleStatus
	ReferencedArticles []string
	PublishedAt        *time.Time
	// ReadTime is the estimated reading time in minutes.
	ReadTime  int
	Views     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArticleSummary is what tasks and other articles show of an article they
// reference.
type ArticleSummary struct {
	ID      string
	Title   string
	Slug    string
	Status  ArticleStatus
	Excerpt string
}

func (a *Article) Summary() ArticleSummary {
	return ArticleSummary{
		ID:      a.ID,
		Title:   a.Title,
		Slug:    a.Slug,
		Status:  a.Status,
		Excerpt: a.Excerpt,
	}
}

func (a *Article) Clone() *Article {
	c := *a
	if a.Images != nil {
		c.Images = append(make([]Image, 0, len(a.Images)), a.Images...)
	}
	c.Tags = cloneStrings(a.Tags)
	c.ReferencedArticles = cloneStrings(a.ReferencedArticles)
	c.PublishedAt = cloneTime(a.PublishedAt)
	return &c
}
