package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	Grid(ctx context.Context, claims *models.JWTClaims, id string) (*models.TimetableGrid, error)
	Publish(ctx context.Context, claims *models.JWTClaims, id string, req dto.PublishTimetableRequest) (*models.Timetable, error)
	Archive(ctx context.Context, claims *models.JWTClaims, id string) (*models.Timetable, error)
	Export(ctx context.Context, claims *models.JWTClaims, id, format string) (*dto.ExportedFile, error)
}

// TimetableHandler serves the grid and the publish/archive lifecycle.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Get godoc
// @Summary Get a timetable grid
// @Tags Timetable
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	grid, err := h.service.Grid(c.Request.Context(), claimsFromContext(c), pathID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Publish godoc
// @Summary Publish a draft timetable
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.PublishTimetableRequest false "Publish options"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetables/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	var req dto.PublishTimetableRequest
	if !bindOptionalJSON(c, &req, "invalid publish payload") {
		return
	}
	timetable, err := h.service.Publish(c.Request.Context(), claimsFromContext(c), pathID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Archive godoc
// @Summary Archive a timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/archive [post]
func (h *TimetableHandler) Archive(c *gin.Context) {
	timetable, err := h.service.Archive(c.Request.Context(), claimsFromContext(c), pathID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Export godoc
// @Summary Download a timetable grid
// @Tags Timetable
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Timetable ID"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} binary
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), claimsFromContext(c), pathID(c), c.Query("format"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
