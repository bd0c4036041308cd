package v1

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/tracker/internal/models"
	"github.com/adanyl0v/tracker/internal/services"
)

type getSectionResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	IsArchived  bool      `json:"isArchived"`
	TasksCount  *int      `json:"tasksCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newGetSectionResponse(section *models.Section) getSectionResponse {
	return getSectionResponse{
		ID:          section.ID,
		Name:        section.Name,
		Description: section.Description,
		Color:       section.Color,
		Icon:        section.Icon,
		IsArchived:  section.IsArchived,
		CreatedAt:   section.CreatedAt,
		UpdatedAt:   section.UpdatedAt,
	}
}

type createSectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

func (h *handlerImpl) HandleCreateSection(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req createSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	section, err := h.sections.CreateSection(c, services.CreateSectionParams{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to create section")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"section": newGetSectionResponse(section)})
}

func (h *handlerImpl) HandleGetSections(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	archived := c.Query("archived") == "true"
	sections, err := h.sections.ListSections(c, userID, archived)
	if err != nil {
		h.abortWithServiceError(c, err, "failed to list sections")
		return
	}

	response := make([]getSectionResponse, len(sections))
	for i, section := range sections {
		response[i] = newGetSectionResponse(section)
	}
	c.JSON(http.StatusOK, gin.H{"sections": response})
}

func (h *handlerImpl) HandleGetSection(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	details, err := h.sections.GetSection(c, userID, c.Param("id"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get section")
		return
	}

	response := newGetSectionResponse(details.Section)
	response.TasksCount = &details.TasksCount
	c.JSON(http.StatusOK, gin.H{"section": response})
}

type updateSectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
}

func (h *handlerImpl) HandleUpdateSection(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req updateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	section, err := h.sections.UpdateSection(c, services.UpdateSectionParams{
		OwnerID:     userID,
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		h.abortWithServiceError(c, err, "failed to update section")
		return
	}

	c.JSON(http.StatusOK, gin.H{"section": newGetSectionResponse(section)})
}

type archiveSectionRequest struct {
	Archive    *bool `json:"archive"`
	IsArchived *bool `json:"isArchived"`
}

// archive reports the requested state. "archive" wins over the
// "isArchived" alias, and an empty body archives.
func (r archiveSectionRequest) archive() bool {
	switch {
	case r.Archive != nil:
		return *r.Archive
	case r.IsArchived != nil:
		return *r.IsArchived
	default:
		return true
	}
}

// HandleArchiveSection archives the section, or restores it when the body
// carries "archive": false.
func (h *handlerImpl) HandleArchiveSection(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req archiveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Debug().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}
	section, err := h.sections.ArchiveSection(c, userID, c.Param("id"), req.archive())
	if err != nil {
		h.abortWithServiceError(c, err, "failed to archive section")
		return
	}

	c.JSON(http.StatusOK, gin.H{"section": newGetSectionResponse(section)})
}

func (h *handlerImpl) HandleDeleteSection(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	err := h.sections.DeleteSection(c, userID, c.Param("id"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to delete section")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleGetSectionStats(c *gin.Context) {
	userID, ok := h.ownerID(c)
	if !ok {
		return
	}

	stats, err := h.stats.TaskStats(c, userID, c.Param("id"))
	if err != nil {
		h.abortWithServiceError(c, err, "failed to get section stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": newTaskStatsResponse(stats)})
}
