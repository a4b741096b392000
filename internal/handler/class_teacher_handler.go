package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type classTeacherService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateClassTeacherRequest) (*models.ClassTeacherDetail, error)
	Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateClassTeacherRequest) (*models.ClassTeacherDetail, error)
	Deactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.ClassTeacherDetail, error)
	Reactivate(ctx context.Context, claims *models.JWTClaims, id string, req dto.AssignmentLifecycleRequest) (*models.ClassTeacherDetail, error)
	Validate(ctx context.Context, claims *models.JWTClaims, req dto.ValidateClassTeacherRequest) (*models.ValidationResult, error)
	List(ctx context.Context, claims *models.JWTClaims, filter dto.AssignmentFilter) ([]models.ClassTeacherDetail, error)
}

// ClassTeacherHandler exposes class-teacher assignment endpoints.
type ClassTeacherHandler struct {
	service classTeacherService
}

// NewClassTeacherHandler constructs the handler.
func NewClassTeacherHandler(service classTeacherService) *ClassTeacherHandler {
	return &ClassTeacherHandler{service: service}
}

// Create godoc
// @Summary Assign a primary or co-class teacher
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassTeacherRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ConfirmationBody
// @Router /class-teachers [post]
func (h *ClassTeacherHandler) Create(c *gin.Context) {
	var req dto.CreateClassTeacherRequest
	if !bindJSON(c, &req, "invalid class teacher payload") {
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
// @Summary Update a class-teacher assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.UpdateClassTeacherRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /class-teachers/{id} [patch]
func (h *ClassTeacherHandler) Update(c *gin.Context) {
	var req dto.UpdateClassTeacherRequest
	if !bindJSON(c, &req, "invalid class teacher payload") {
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
// @Summary Deactivate a class-teacher assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /class-teachers/{id}/deactivate [post]
func (h *ClassTeacherHandler) Deactivate(c *gin.Context) {
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
// @Summary Reactivate a class-teacher assignment
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /class-teachers/{id}/reactivate [post]
func (h *ClassTeacherHandler) Reactivate(c *gin.Context) {
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
// @Summary Dry-run class-teacher validation
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.ValidateClassTeacherRequest true "Proposed assignment"
// @Success 200 {object} response.Envelope
// @Router /class-teachers/validate [post]
func (h *ClassTeacherHandler) Validate(c *gin.Context) {
	var req dto.ValidateClassTeacherRequest
	if !bindJSON(c, &req, "invalid class teacher payload") {
		return
	}
	result, err := h.service.Validate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List a unit's class teachers
// @Tags Assignments
// @Produce json
// @Param academicUnitId query string true "Unit"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /class-teachers [get]
func (h *ClassTeacherHandler) List(c *gin.Context) {
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
