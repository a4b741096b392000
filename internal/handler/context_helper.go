package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// renderError writes domain errors in their dedicated body shapes and falls
// back to the standard envelope.
func renderError(c *gin.Context, err error) {
	var conflict *models.SlotConflictError
	if errors.As(err, &conflict) {
		response.Conflicts(c, appErrors.ErrSlotConflict.Message, conflict.Conflicts)
		return
	}
	var confirm *models.ConfirmationRequiredError
	if errors.As(err, &confirm) {
		response.ConfirmationRequired(c, confirm.Warnings)
		return
	}
	var rejected *models.AssignmentRejectedError
	if errors.As(err, &rejected) {
		appErr := appErrors.FromError(err)
		_ = c.Error(err)
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"errors": rejected.Errors, "warnings": rejected.Warnings},
		})
		return
	}
	var coverage *models.SubjectCoverageError
	if errors.As(err, &coverage) {
		appErr := appErrors.FromError(err)
		_ = c.Error(err)
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"missingSubjects": coverage.MissingSubjects},
		})
		return
	}
	response.Error(c, err)
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dest interface{}, message string) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dest, message)
}

func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func pathID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
