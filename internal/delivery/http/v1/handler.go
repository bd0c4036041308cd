package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/services"
)

type Handler interface {
	HandleAuthMiddleware(c *gin.Context)

	HandleCreateSection(c *gin.Context)
	HandleGetSections(c *gin.Context)
	HandleGetSection(c *gin.Context)
	HandleUpdateSection(c *gin.Context)
	HandleArchiveSection(c *gin.Context)
	HandleDeleteSection(c *gin.Context)
	HandleGetSectionStats(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleBulkUpdateTasks(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleGetTaskStats(c *gin.Context)

	HandleCreateArticle(c *gin.Context)
	HandleGetArticles(c *gin.Context)
	HandleGetArticle(c *gin.Context)
	HandleSearchArticles(c *gin.Context)
	HandleUpdateArticle(c *gin.Context)
	HandleDeleteArticle(c *gin.Context)
	HandleGetArticleStats(c *gin.Context)
	HandleGetCategoriesAndTags(c *gin.Context)
}

type handlerImpl struct {
	logger   zerolog.Logger
	sections services.SectionService
	tasks    services.TaskService
	articles services.ArticleService
	stats    services.StatsService

	jwtIssuer     string
	jwtSigningKey []byte
}

func New(
	logger zerolog.Logger,
	sectionService services.SectionService,
	taskService services.TaskService,
	articleService services.ArticleService,
	statsService services.StatsService,
	jwtIssuer string,
	jwtSigningKey []byte,
) Handler {
	return &handlerImpl{
		logger:        logger,
		sections:      sectionService,
		tasks:         taskService,
		articles:      articleService,
		stats:         statsService,
		jwtIssuer:     jwtIssuer,
		jwtSigningKey: jwtSigningKey,
	}
}

// RegisterRoutes mounts every v1 endpoint under router. All of them
// require a bearer token.
func RegisterRoutes(router gin.IRouter, h Handler) {
	api := router.Group("/api/v1", h.HandleAuthMiddleware)

	sections := api.Group("/sections")
	sections.GET("", h.HandleGetSections)
	sections.POST("", h.HandleCreateSection)
	sections.GET("/:id", h.HandleGetSection)
	sections.PUT("/:id", h.HandleUpdateSection)
	sections.DELETE("/:id", h.HandleDeleteSection)
	sections.PATCH("/:id/archive", h.HandleArchiveSection)
	sections.GET("/:id/stats", h.HandleGetSectionStats)

	tasks := api.Group("/tasks")
	tasks.GET("", h.HandleGetTasks)
	tasks.POST("", h.HandleCreateTask)
	tasks.GET("/stats/overview", h.HandleGetTaskStats)
	tasks.PATCH("/bulk", h.HandleBulkUpdateTasks)
	tasks.GET("/:id", h.HandleGetTask)
	tasks.PUT("/:id", h.HandleUpdateTask)
	tasks.DELETE("/:id", h.HandleDeleteTask)

	articles := api.Group("/articles")
	articles.GET("", h.HandleGetArticles)
	articles.POST("", h.HandleCreateArticle)
	articles.GET("/stats/overview", h.HandleGetArticleStats)
	articles.GET("/meta/categories-tags", h.HandleGetCategoriesAndTags)
	articles.POST("/search", h.HandleSearchArticles)
	articles.GET("/:id", h.HandleGetArticle)
	articles.PUT("/:id", h.HandleUpdateArticle)
	articles.DELETE("/:id", h.HandleDeleteArticle)
}
