package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type subjectTeacherService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateSubjectTeacherRequest) (*models.SubjectTeacherDetail, error)
	Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateSubjectTeacherRequest) (*models.SubjectTeacherDetail, error)
	Deactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.SubjectTeacherDetail, error)
	Reactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.SubjectTeacherDetail, error)
	Validate(ctx context.Context, claims *models.JWTClaims, req dto.ValidateSubjectTeacherRequest) (*models.ValidationResult, error)
	Resolve(ctx context.Context, claims *models.JWTClaims, q dto.ResolveSubjectTeacherQuery) ([]models.SubjectTeacherDetail, error)
	Coverage(ctx context.Context, claims *models.JWTClaims, unitID, yearID string) (*models.SubjectCoverage, error)
	List(ctx context.Context, claims *models.JWTClaims, filter dto.AssignmentFilter) ([]models.SubjectTeacherDetail, error)
}

// SubjectTeacherHandler exposes subject-teacher assignment endpoints.
type SubjectTeacherHandler struct {
	service subjectTeacherService
}

// NewSubjectTeacherHandler constructs the handler.
func NewSubjectTeacherHandler(service subjectTeacherService) *SubjectTeacherHandler {
	return &SubjectTeacherHandler{service: service}
}

// Create godoc
// @Summary Assign a teacher to a subject in a unit
// @Description Validation errors return 400 with meta.errors; unacknowledged warnings return requiresConfirmation.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubjectTeacherRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ConfirmationBody
// @Router /subject-teachers [post]
func (h *SubjectTeacherHandler) Create(c *gin.Context) {
	var req dto.CreateSubjectTeacherRequest
	if !bindJSON(c, &req, "invalid subject teacher payload") {
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, assignment)
}

// Update godoc
// @Summary Update a subject-teacher assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.UpdateSubjectTeacherRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/{id} [patch]
func (h *SubjectTeacherHandler) Update(c *gin.Context) {
	var req dto.UpdateSubjectTeacherRequest
	if !bindJSON(c, &req, "invalid subject teacher payload") {
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), claimsFromContext(c), pathID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Deactivate godoc
// @Summary Deactivate a subject-teacher assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentLifecycleRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/{id}/deactivate [post]
func (h *SubjectTeacherHandler) Deactivate(c *gin.Context) {
	var req dto.AssignmentLifecycleRequest
	if !bindOptionalJSON(c, &req, "invalid lifecycle payload") {
		return
	}
	assignment, err := h.service.Deactivate(c.Request.Context(), claimsFromContext(c), pathID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Reactivate godoc
// @Summary Reactivate a subject-teacher assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentLifecycleRequest false "Reason and override"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/{id}/reactivate [post]
func (h *SubjectTeacherHandler) Reactivate(c *gin.Context) {
	var req dto.AssignmentLifecycleRequest
	if !bindOptionalJSON(c, &req, "invalid lifecycle payload") {
		return
	}
	assignment, err := h.service.Reactivate(c.Request.Context(), claimsFromContext(c), pathID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Validate godoc
// @Summary Dry-run subject-teacher validation
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ValidateSubjectTeacherRequest true "Proposed assignment"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/validate [post]
func (h *SubjectTeacherHandler) Validate(c *gin.Context) {
	var req dto.ValidateSubjectTeacherRequest
	if !bindJSON(c, &req, "invalid subject teacher payload") {
		return
	}
	result, err := h.service.Validate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Resolve godoc
// @Summary Resolve who teaches a subject, inheriting from the parent unit
// @Tags Assignments
// @Produce json
// @Param academicUnitId query string true "Unit"
// @Param subjectId query string true "Subject"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers/resolve [get]
func (h *SubjectTeacherHandler) Resolve(c *gin.Context) {
	var query dto.ResolveSubjectTeacherQuery
	if !bindQuery(c, &query, "invalid resolve query") {
		return
	}
	rows, err := h.service.Resolve(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// List godoc
// @Summary List a unit's subject teachers
// @Tags Assignments
// @Produce json
// @Param academicUnitId query string true "Unit"
// @Param academicYearId query string true "Academic year"
// @Param includeInactive query bool false "Include ended assignments"
// @Success 200 {object} response.Envelope
// @Router /subject-teachers [get]
func (h *SubjectTeacherHandler) List(c *gin.Context) {
	var filter dto.AssignmentFilter
	if !bindQuery(c, &filter, "invalid filter") {
		return
	}
	rows, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Coverage godoc
// @Summary Report subjects without a teacher for a unit
// @Tags Assignments
// @Produce json
// @Param id path string true "Academic unit ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /academic-units/{id}/subject-coverage [get]
func (h *SubjectTeacherHandler) Coverage(c *gin.Context) {
	coverage, err := h.service.Coverage(c.Request.Context(), claimsFromContext(c), pathID(c), c.Query("academicYearId"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, coverage, nil)
}
