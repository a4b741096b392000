package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type historyService interface {
	ListHistory(ctx context.Context, claims *models.JWTClaims, category models.AssignmentCategory, assignmentID string) ([]models.AssignmentHistory, error)
}

type workloadService interface {
	Recompute(ctx context.Context, claims *models.JWTClaims, teacherID, yearID string) (*dto.WorkloadSummary, error)
}

// AssignmentHistoryHandler serves the assignment change log and workload reconciliation.
type AssignmentHistoryHandler struct {
	history  historyService
	workload workloadService
}

// NewAssignmentHistoryHandler constructs the handler.
func NewAssignmentHistoryHandler(history historyService, workload workloadService) *AssignmentHistoryHandler {
	return &AssignmentHistoryHandler{history: history, workload: workload}
}

// List godoc
// @Summary Assignment change history
// @Tags Assignments
// @Produce json
// @Param category path string true "SUBJECT_TEACHER or CLASS_TEACHER"
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignment-history/{category}/{id} [get]
func (h *AssignmentHistoryHandler) List(c *gin.Context) {
	category := models.AssignmentCategory(strings.ToUpper(strings.ReplaceAll(c.Param("category"), "-", "_")))
	entries, err := h.history.ListHistory(c.Request.Context(), claimsFromContext(c), category, pathID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// RecomputeWorkload godoc
// @Summary Recompute a teacher's weekly period count
// @Tags Assignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/workload/recompute [post]
func (h *AssignmentHistoryHandler) RecomputeWorkload(c *gin.Context) {
	summary, err := h.workload.Recompute(c.Request.Context(), claimsFromContext(c), pathID(c), c.Query("academicYearId"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
