package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/services"
)

type getArticleResponse struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Slug               string         `json:"slug"`
	Content            string         `json:"content,omitempty"`
	Excerpt            string         `json:"excerpt"`
	CoverImage         string         `json:"coverImage"`
	Images             []models.Image `json:"images"`
	Tags               []string       `json:"tags"`
	Category           string         `json:"category"`
	Status             string         `json:"status"`
	ReferencedArticles []string       `json:"referencedArticles"`
	PublishedAt        *time.Time     `json:"publishedAt"`
	ReadTime           int            `json:"readTime"`
	Views              int64          `json:"views"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`

	ReferencedArticleDetails []articleSummaryResponse `json:"referencedArticleDetails,omitempty"`
}

type articleSummaryResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	Excerpt string `json:"excerpt"`
}

func newArticleSummaryResponses(summaries []models.ArticleSummary) []articleSummaryResponse {
	if len(summaries) == 0 {
		return nil
	}
	response := make([]articleSummaryResponse, len(summaries))
	for i, summary := range summaries {
		response[i] = articleSummaryResponse{
			ID:      summary.ID,
			Title:   summary.Title,
			Slug:    summary.Slug,
			Status:  string(summary.Status),
			Excerpt: summary.Excerpt,
		}
	}
	return response
}

func newArticleDetailsResponse(d *services.ArticleDetails) getArticleResponse {
	response := newGetArticleResponse(d.Article)
	response.ReferencedArticleDetails = newArticleSummaryResponses(d.References)
	return response
}

func newGetArticleResponse(article *models.Article) getArticleResponse {
	return getArticleResponse{
		ID:                 article.ID,
		Title:              article.Title,
		Slug:               article.Slug,
		Content:            article.Content,
		Excerpt:            article.Excerpt,
		CoverImage:         article.CoverImage,
		Images:             nonNil(article.Images),
		Tags:               nonNil(article.Tags),
		Category:           article.Category,
		Status:             string(article.Status),
		ReferencedArticles: nonNil(article.ReferencedArticles),
		PublishedAt:        article.PublishedAt,
		ReadTime:           article.ReadTime,
		Views:              article.Views,
		CreatedAt:          article.CreatedAt,
		UpdatedAt:          article.UpdatedAt,
	}
}

func newGetArticlesResponse(articles []*models.Article) []getArticleResponse {
	response := make([]getArticleResponse, len(articles))
	for i, article := range articles {
		response[i] = newGetArticleResponse(article)
	}
	return response
}

type createArticleRequest struct {
	Title              string               `json:"title"`
	Slug               string               `json:"slug"`
	Content            string               `json:"content"`
	Excerpt            string               `json:"excerpt"`
	CoverImage         string               `json:"coverImage"`
	Images             []models.Image       `json:"images"`
	Tags               []string             `json:"tags"`
	Category           string               `json:"category"`
	Status             models.ArticleStatus `json:"status"`
	ReferencedArticles []string             `json:"referencedArticles"`
}

func (h *handlerImpl) HandleCreateArticle(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	article, err := h.articles.CreateArticle(c, services.CreateArticleParams{
		OwnerID:            userID,
		Title:              req.Title,
		Slug:               req.Slug,
		Content:            req.Content,
		Excerpt:            req.Excerpt,
		CoverImage:         req.CoverImage,
		Images:             req.Images,
		Tags:               req.Tags,
		Category:           req.Category,
		Status:             req.Status,
		ReferencedArticles: req.ReferencedArticles,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to create article")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"article": newGetArticleResponse(article)})
}

func (h *handlerImpl) HandleGetArticles(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	statuses, err := query.ParseArticleStatuses(c.Query("status"))
	if err != nil {
		abortWithQueryError(c, err)
		return
	}
	sort, page, err := parseSortAndPage(c)
	if err != nil {
		abortWithQueryError(c, err)
		return
	}

	result, err := h.articles.ListArticles(c, services.ListArticlesParams{
		Filter: query.ArticleFilter{
			OwnerID:  userID,
			Statuses: statuses,
			Category: c.Query("category"),
			Tags:     query.ParseList(c.Query("tags")),
			Search:   c.Query("search"),
		},
		Sort: sort,
		Page: page,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to list articles")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles":   newGetArticlesResponse(result.Articles),
		"pagination": newPaginationResponse(result.Pagination),
	})
}

// HandleGetArticle looks the article up by id or by slug.
func (h *handlerImpl) HandleGetArticle(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	incrementViews := c.Query("increment_views") == "true"
	article, err := h.articles.GetArticle(c, userID, c.Param("id"), incrementViews)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get article")
		return
	}

	c.JSON(http.StatusOK, gin.H{"article": newArticleDetailsResponse(article)})
}

type searchArticlesRequest struct {
	Query   string `json:"query"`
	Filters struct {
		Status   string   `json:"status"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	} `json:"filters"`
	Limit int `json:"limit"`
}

func (h *handlerImpl) HandleSearchArticles(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req searchArticlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	statuses, err := query.ParseArticleStatuses(req.Filters.Status)
	if err != nil {
		abortWithQueryError(c, err)
		return
	}

	articles, err := h.articles.SearchArticles(c, services.SearchArticlesParams{
		OwnerID:  userID,
		Query:    req.Query,
		Statuses: statuses,
		Category: req.Filters.Category,
		Tags:     req.Filters.Tags,
		Limit:    req.Limit,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to search articles")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": newGetArticlesResponse(articles),
		"query":    req.Query,
		"count":    len(articles),
	})
}

type updateArticleRequest struct {
	Title              *string               `json:"title"`
	Slug               *string               `json:"slug"`
	Content            *string               `json:"content"`
	Excerpt            *string               `json:"excerpt"`
	CoverImage         *string               `json:"coverImage"`
	Images             *[]models.Image       `json:"images"`
	Tags               *[]string             `json:"tags"`
	Category           *string               `json:"category"`
	Status             *models.ArticleStatus `json:"status"`
	ReferencedArticles *[]string             `json:"referencedArticles"`
}

func (h *handlerImpl) HandleUpdateArticle(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	article, err := h.articles.UpdateArticle(c, services.UpdateArticleParams{
		OwnerID:            userID,
		ID:                 c.Param("id"),
		Title:              req.Title,
		Slug:               req.Slug,
		Content:            req.Content,
		Excerpt:            req.Excerpt,
		CoverImage:         req.CoverImage,
		Images:             req.Images,
		Tags:               req.Tags,
		Category:           req.Category,
		Status:             req.Status,
		ReferencedArticles: req.ReferencedArticles,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to update article")
		return
	}

	c.JSON(http.StatusOK, gin.H{"article": newGetArticleResponse(article)})
}

func (h *handlerImpl) HandleDeleteArticle(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	err := h.articles.DeleteArticle(c, userID, c.Param("id"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to delete article")
		return
	}

	c.Status(http.StatusNoContent)
}

type articleStatsResponse struct {
	Total              int                     `json:"total"`
	Status             map[string]int          `json:"status"`
	Categories         []categoryCountResponse `json:"categories"`
	TotalViews         int64                   `json:"totalViews"`
	PublishedThisMonth int                     `json:"publishedThisMonth"`
}

type categoryCountResponse struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

func (h *handlerImpl) HandleGetArticleStats(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	stats, err := h.stats.ArticleStats(c, userID)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get article stats")
		return
	}

	response := articleStatsResponse{
		Total:              stats.Total,
		Status:             make(map[string]int, len(stats.Status)),
		Categories:         make([]categoryCountResponse, len(stats.Categories)),
		TotalViews:         stats.TotalViews,
		PublishedThisMonth: stats.PublishedThisMonth,
	}
	for status, n := range stats.Status {
		response.Status[string(status)] = n
	}
	for i, cc := range stats.Categories {
		response.Categories[i] = categoryCountResponse{Category: cc.Category, Count: cc.Count}
	}
	c.JSON(http.StatusOK, gin.H{"stats": response})
}

func (h *handlerImpl) HandleGetCategoriesAndTags(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	categories, tags, err := h.articles.CategoriesAndTags(c, userID)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get article categories and tags")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"tags":       tags,
	})
}
