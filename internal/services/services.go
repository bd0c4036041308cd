package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")

	ErrSectionNotFound = fmt.Errorf("section %w", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
	ErrArticleNotFound = fmt.Errorf("article %w", ErrNotFound)
)

// ValidationError describes input the caller has to correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError is returned for uniqueness violations and for deletes
// blocked by dependent records. Dependents is zero for the former.
type ConflictError struct {
	Reason     string
	Dependents int
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

type SectionService interface {
	CreateSection(ctx context.Context, params CreateSectionParams) (*models.Section, error)

	// GetSection returns the section together with the number of tasks
	// that reference it.
	GetSection(ctx context.Context, ownerID, id string) (*SectionDetails, error)

	// ListSections returns either the active or the archived sections,
	// newest first.
	ListSections(ctx context.Context, ownerID string, archived bool) ([]*models.Section, error)

	// UpdateSection changes only the fields set in params.
	//
	// It returns a *ConflictError if the new name is already used by
	// another active section of the owner.
	UpdateSection(ctx context.Context, params UpdateSectionParams) (*models.Section, error)

	// ArchiveSection archives or restores a section. Restoring fails with
	// a *ConflictError if an active section took the name meanwhile.
	ArchiveSection(ctx context.Context, ownerID, id string, archive bool) (*models.Section, error)

	// DeleteSection removes a section without tasks. Otherwise it returns
	// a *ConflictError whose Dependents holds the number of tasks.
	DeleteSection(ctx context.Context, ownerID, id string) error
}

type TaskService interface {
	// CreateTask validates the section and linked articles and stores a
	// new task with derived fields filled in.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// GetTask and ListTasks return tasks with their section and linked
	// articles resolved.
	GetTask(ctx context.Context, ownerID, id string) (*TaskDetails, error)
	ListTasks(ctx context.Context, params ListTasksParams) (*TaskPage, error)

	// UpdateTask changes only the fields set in params. A new section or
	// linked article list is validated again.
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)
	DeleteTask(ctx context.Context, ownerID, id string) error

	// BulkUpdateTasks applies one update to several tasks at once and
	// returns how many of them changed. Unless every id belongs to the
	// owner nothing is written and ErrTaskNotFound is returned.
	BulkUpdateTasks(ctx context.Context, params BulkUpdateTasksParams) (int, error)
}

type ArticleService interface {
	CreateArticle(ctx context.Context, params CreateArticleParams) (*models.Article, error)

	// GetArticle resolves identifier as an id when it has the shape of
	// one and as a slug otherwise. incrementViews bumps the view counter.
	// Referenced articles are resolved.
	GetArticle(ctx context.Context, ownerID, identifier string, incrementViews bool) (*ArticleDetails, error)

	// ListArticles returns a page of articles without their content.
	ListArticles(ctx context.Context, params ListArticlesParams) (*ArticlePage, error)

	// SearchArticles returns up to params.Limit articles whose title,
	// content or excerpt contain params.Query, without their content.
	SearchArticles(ctx context.Context, params SearchArticlesParams) ([]*models.Article, error)

	UpdateArticle(ctx context.Context, params UpdateArticleParams) (*models.Article, error)

	// DeleteArticle removes the article after pulling its id from the
	// reference lists of the owner's other articles and tasks.
	DeleteArticle(ctx context.Context, ownerID, id string) error

	// CategoriesAndTags returns the sorted distinct categories and tags
	// used by the owner's articles.
	CategoriesAndTags(ctx context.Context, ownerID string) (categories, tags []string, err error)
}

type StatsService interface {
	// TaskStats aggregates the owner's tasks, optionally limited to one
	// section.
	TaskStats(ctx context.Context, ownerID, sectionID string) (*models.TaskStats, error)
	ArticleStats(ctx context.Context, ownerID string) (*models.ArticleStats, error)
}

type SectionDetails struct {
	*models.Section
	TasksCount int
}

type CreateSectionParams struct {
	OwnerID     string `validate:"required"`
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Color       string `validate:"omitempty,color"`
	Icon        string `validate:"max=50"`
}

type UpdateSectionParams struct {
	OwnerID     string  `validate:"required"`
	ID          string  `validate:"required"`
	Name        *string `validate:"omitnil,min=1,max=100"`
	Description *string `validate:"omitnil,max=500"`
	Color       *string `validate:"omitnil,color"`
	Icon        *string `validate:"omitnil,max=50"`
}

type CreateTaskParams struct {
	OwnerID        string              `validate:"required"`
	SectionID      string              `validate:"required,id"`
	Name           string              `validate:"required,max=200"`
	Description    string              `validate:"max=1000"`
	DueDate        time.Time           `validate:"required"`
	Notes          string              `validate:"max=2000"`
	Priority       models.TaskPriority `validate:"omitempty,oneof=low medium high urgent"`
	Status         models.TaskStatus   `validate:"omitempty,oneof=pending in-progress completed cancelled"`
	Tags           []string            `validate:"dive,max=50"`
	LinkedArticles []string            `validate:"dive,id"`
	EstimatedTime  *int                `validate:"omitnil,gte=0"`
	ActualTime     *int                `validate:"omitnil,gte=0"`
}

// TaskUpdate holds the fields of a partial task update. Nil means the
// field is left untouched; a non-nil empty value clears it.
type TaskUpdate struct {
	SectionID      *string              `validate:"omitnil,id"`
	Name           *string              `validate:"omitnil,min=1,max=200"`
	Description    *string              `validate:"omitnil,max=1000"`
	DueDate        *time.Time           `validate:"omitnil"`
	Notes          *string              `validate:"omitnil,max=2000"`
	Priority       *models.TaskPriority `validate:"omitnil,oneof=low medium high urgent"`
	Status         *models.TaskStatus   `validate:"omitnil,oneof=pending in-progress completed cancelled"`
	Tags           *[]string            `validate:"omitnil,dive,max=50"`
	LinkedArticles *[]string            `validate:"omitnil,dive,id"`
	EstimatedTime  *int                 `validate:"omitnil,gte=0"`
	ActualTime     *int                 `validate:"omitnil,gte=0"`
}

type UpdateTaskParams struct {
	OwnerID string `validate:"required"`
	ID      string `validate:"required"`
	TaskUpdate
}

type BulkUpdateTasksParams struct {
	OwnerID string   `validate:"required"`
	TaskIDs []string `validate:"required,min=1,dive,id"`
	TaskUpdate
}

type ListTasksParams struct {
	Filter query.TaskFilter
	// DueOn selects tasks due on that day.
	DueOn   *time.Time
	Overdue bool
	Sort    query.Sort
	Page    query.Page
}

// TaskDetails is a task with the records it references. References the
// owner can no longer see are left out.
type TaskDetails struct {
	*models.Task
	Section                *models.SectionSummary
	LinkedArticleSummaries []models.ArticleSummary
}

type TaskPage struct {
	Tasks      []*TaskDetails
	Pagination query.Pagination
}

type CreateArticleParams struct {
	OwnerID            string `validate:"required"`
	Title              string `validate:"max=200"`
	Slug               string `validate:"omitempty,slug"`
	Content            string
	Excerpt            string `validate:"max=500"`
	CoverImage         string `validate:"omitempty,url"`
	Images             []models.Image
	Tags               []string             `validate:"dive,max=50"`
	Category           string               `validate:"max=100"`
	Status             models.ArticleStatus `validate:"omitempty,oneof=draft published archived"`
	ReferencedArticles []string             `validate:"dive,id"`
}

type UpdateArticleParams struct {
	OwnerID            string  `validate:"required"`
	ID                 string  `validate:"required"`
	Title              *string `validate:"omitnil,max=200"`
	Slug               *string `validate:"omitempty,slug"`
	Content            *string
	Excerpt            *string `validate:"omitnil,max=500"`
	CoverImage         *string `validate:"omitempty,url"`
	Images             *[]models.Image
	Tags               *[]string             `validate:"omitnil,dive,max=50"`
	Category           *string               `validate:"omitnil,max=100"`
	Status             *models.ArticleStatus `validate:"omitnil,oneof=draft published archived"`
	ReferencedArticles *[]string             `validate:"omitnil,dive,id"`
}

type ArticleDetails struct {
	*models.Article
	References []models.ArticleSummary
}

type ListArticlesParams struct {
	Filter query.ArticleFilter
	Sort   query.Sort
	Page   query.Page
}

type ArticlePage struct {
	Articles   []*models.Article
	Pagination query.Pagination
}

type SearchArticlesParams struct {
	OwnerID  string                 `validate:"required"`
	Query    string                 `validate:"required,min=2"`
	Statuses []models.ArticleStatus `validate:"dive,oneof=draft published archived"`
	Category string
	Tags     []string
	Limit    int `validate:"gte=0"`
}
