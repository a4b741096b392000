package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type slotService interface {
	SaveSlot(ctx context.Context, claims *models.JWTClaims, req dto.SaveSlotRequest) (*models.SlotDetail, error)
	CheckSlot(ctx context.Context, claims *models.JWTClaims, req dto.SaveSlotRequest) (*dto.SlotCheckResponse, error)
	DeleteSlot(ctx context.Context, claims *models.JWTClaims, slotID string) error
	GetAvailableTeachers(ctx context.Context, claims *models.JWTClaims, query dto.AvailableTeachersQuery) ([]models.TeacherAvailability, error)
}

// SlotHandler exposes timetable slot placement endpoints.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// Save godoc
// @Summary Create or edit a timetable slot
// @Description Runs every conflict check before writing. Conflicts return 409 with the full list.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.SaveSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.ConflictBody
// @Router /timetable-slots [post]
func (h *SlotHandler) Save(c *gin.Context) {
	var req dto.SaveSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	slot, err := h.service.SaveSlot(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	if req.SlotID != nil && *req.SlotID != "" {
		response.JSON(c, http.StatusOK, slot, nil)
		return
	}
	response.Created(c, slot)
}

// Check godoc
// @Summary Dry-run the conflict checks for a slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.SaveSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /timetable-slots/check [post]
func (h *SlotHandler) Check(c *gin.Context) {
	var req dto.SaveSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	result, err := h.service.CheckSlot(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Deactivate a timetable slot
// @Tags Timetable
// @Param id path string true "Slot ID"
// @Success 204
// @Router /timetable-slots/{id} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), claimsFromContext(c), pathID(c)); err != nil {
		renderError(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableTeachers godoc
// @Summary List teachers free at a day and period
// @Tags Timetable
// @Produce json
// @Param dayOfWeek query int true "Day of week (1=Monday)"
// @Param periodNumber query int true "Period number"
// @Param subjectId query string false "Only teachers assigned to this subject"
// @Param academicYearId query string false "Academic year for the subject filter"
// @Success 200 {object} response.Envelope
// @Router /available-teachers [get]
func (h *SlotHandler) AvailableTeachers(c *gin.Context) {
	var query dto.AvailableTeachersQuery
	if !bindQuery(c, &query, "invalid availability query") {
		return
	}
	teachers, err := h.service.GetAvailableTeachers(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}
