package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/query"
	"github.com/adanyl0v/tracker/internal/services"
)

type getTaskResponse struct {
	ID             string     `json:"id"`
	Section        string     `json:"section"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	DueDate        time.Time  `json:"dueDate"`
	Notes          string     `json:"notes"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	Tags           []string   `json:"tags"`
	LinkedArticles []string   `json:"linkedArticles"`
	EstimatedTime  *int       `json:"estimatedTime"`
	ActualTime     *int       `json:"actualTime"`
	CompletedAt    *time.Time `json:"completedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	// Resolved references, present on reads only.
	SectionDetails       *sectionSummaryResponse  `json:"sectionDetails,omitempty"`
	LinkedArticleDetails []articleSummaryResponse `json:"linkedArticleDetails,omitempty"`
}

type sectionSummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func newTaskDetailsResponse(d *services.TaskDetails) getTaskResponse {
	response := newGetTaskResponse(d.Task)
	if d.Section != nil {
		response.SectionDetails = &sectionSummaryResponse{
			ID:    d.Section.ID,
			Name:  d.Section.Name,
			Color: d.Section.Color,
			Icon:  d.Section.Icon,
		}
	}
	response.LinkedArticleDetails = newArticleSummaryResponses(d.LinkedArticleSummaries)
	return response
}

func newGetTaskResponse(task *models.Task) getTaskResponse {
	return getTaskResponse{
		ID:             task.ID,
		Section:        task.SectionID,
		Name:           task.Name,
		Description:    task.Description,
		DueDate:        task.DueDate,
		Notes:          task.Notes,
		Priority:       string(task.Priority),
		Status:         string(task.Status),
		Tags:           nonNil(task.Tags),
		LinkedArticles: nonNil(task.LinkedArticles),
		EstimatedTime:  task.EstimatedTime,
		ActualTime:     task.ActualTime,
		CompletedAt:    task.CompletedAt,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type createTaskRequest struct {
	Section        string              `json:"section"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	DueDate        time.Time           `json:"dueDate"`
	Notes          string              `json:"notes"`
	Priority       models.TaskPriority `json:"priority"`
	Status         models.TaskStatus   `json:"status"`
	Tags           []string            `json:"tags"`
	LinkedArticles []string            `json:"linkedArticles"`
	EstimatedTime  *int                `json:"estimatedTime"`
	ActualTime     *int                `json:"actualTime"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		OwnerID:        userID,
		SectionID:      req.Section,
		Name:           req.Name,
		Description:    req.Description,
		DueDate:        req.DueDate,
		Notes:          req.Notes,
		Priority:       req.Priority,
		Status:         req.Status,
		Tags:           req.Tags,
		LinkedArticles: req.LinkedArticles,
		EstimatedTime:  req.EstimatedTime,
		ActualTime:     req.ActualTime,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": newGetTaskResponse(task)})
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	params, err := parseListTasksParams(c, userID)
	if err != nil {
		abortWithQueryError(c, err)
		return
	}

	page, err := h.tasks.ListTasks(c, params)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to list tasks")
		return
	}

	response := make([]getTaskResponse, len(page.Tasks))
	for i, task := range page.Tasks {
		response[i] = newTaskDetailsResponse(task)
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":      response,
		"pagination": newPaginationResponse(page.Pagination),
	})
}

func parseListTasksParams(c *gin.Context, userID string) (services.ListTasksParams, error) {
	statuses, err := query.ParseTaskStatuses(c.Query("status"))
	if err != nil {
		return services.ListTasksParams{}, err
	}
	priorities, err := query.ParseTaskPriorities(c.Query("priority"))
	if err != nil {
		return services.ListTasksParams{}, err
	}
	sort, page, err := parseSortAndPage(c)
	if err != nil {
		return services.ListTasksParams{}, err
	}

	params := services.ListTasksParams{
		Filter: query.TaskFilter{
			OwnerID:    userID,
			SectionID:  c.Query("section"),
			Statuses:   statuses,
			Priorities: priorities,
			Tags:       query.ParseList(c.Query("tags")),
			Search:     c.Query("search"),
		},
		Overdue: c.Query("overdue") == "true",
		Sort:    sort,
		Page:    page,
	}
	if raw := c.Query("dueDate"); raw != "" {
		day, err := parseDay(raw)
		if err != nil {
			return services.ListTasksParams{}, err
		}
		params.DueOn = &day
	}
	return params, nil
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c, userID, c.Param("id"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": newTaskDetailsResponse(task)})
}

type updateTaskRequest struct {
	Section        *string              `json:"section"`
	Name           *string              `json:"name"`
	Description    *string              `json:"description"`
	DueDate        *time.Time           `json:"dueDate"`
	Notes          *string              `json:"notes"`
	Priority       *models.TaskPriority `json:"priority"`
	Status         *models.TaskStatus   `json:"status"`
	Tags           *[]string            `json:"tags"`
	LinkedArticles *[]string            `json:"linkedArticles"`
	EstimatedTime  *int                 `json:"estimatedTime"`
	ActualTime     *int                 `json:"actualTime"`
}

func (r updateTaskRequest) toTaskUpdate() services.TaskUpdate {
	return services.TaskUpdate{
		SectionID:      r.Section,
		Name:           r.Name,
		Description:    r.Description,
		DueDate:        r.DueDate,
		Notes:          r.Notes,
		Priority:       r.Priority,
		Status:         r.Status,
		Tags:           r.Tags,
		LinkedArticles: r.LinkedArticles,
		EstimatedTime:  r.EstimatedTime,
		ActualTime:     r.ActualTime,
	}
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.UpdateTask(c, services.UpdateTaskParams{
		OwnerID:    userID,
		ID:         c.Param("id"),
		TaskUpdate: req.toTaskUpdate(),
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to update task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": newGetTaskResponse(task)})
}

type bulkUpdateTasksRequest struct {
	TaskIDs []string          `json:"taskIds"`
	Updates updateTaskRequest `json:"updates"`
}

func (h *handlerImpl) HandleBulkUpdateTasks(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req bulkUpdateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	modified, err := h.tasks.BulkUpdateTasks(c, services.BulkUpdateTasksParams{
		OwnerID:    userID,
		TaskIDs:    req.TaskIDs,
		TaskUpdate: req.Updates.toTaskUpdate(),
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to bulk update tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"modifiedCount": modified})
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c, userID, c.Param("id"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to delete task")
		return
	}

	c.Status(http.StatusNoContent)
}

type taskStatsResponse struct {
	Total             int            `json:"total"`
	Status            map[string]int `json:"status"`
	Priority          map[string]int `json:"priority"`
	Overdue           int            `json:"overdue"`
	CompletedThisWeek int            `json:"completedThisWeek"`
}

func newTaskStatsResponse(stats *models.TaskStats) taskStatsResponse {
	response := taskStatsResponse{
		Total:             stats.Total,
		Status:            make(map[string]int, len(stats.Status)),
		Priority:          make(map[string]int, len(stats.Priority)),
		Overdue:           stats.Overdue,
		CompletedThisWeek: stats.CompletedThisWeek,
	}
	for status, n := range stats.Status {
		response.Status[string(status)] = n
	}
	for priority, n := range stats.Priority {
		response.Priority[string(priority)] = n
	}
	return response
}

func (h *handlerImpl) HandleGetTaskStats(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	stats, err := h.stats.TaskStats(c, userID, c.Query("section"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get task stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": newTaskStatsResponse(stats)})
}
