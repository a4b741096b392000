package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// ConflictBody is the 409 body returned when a slot placement collides.
type ConflictBody struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Conflicts interface{} `json:"conflicts"`
}

// ConfirmationBody is the 400 body returned for unacknowledged warnings.
type ConfirmationBody struct {
	RequiresConfirmation bool     `json:"requiresConfirmation"`
	Warnings             []string `json:"warnings"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	_ = c.Error(err)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Conflicts writes the slot-conflict body.
func Conflicts(c *gin.Context, message string, conflicts interface{}) {
	noStore(c)
	c.JSON(http.StatusConflict, ConflictBody{Success: false, Message: message, Conflicts: conflicts})
}

// ConfirmationRequired writes the override-prompt body.
func ConfirmationRequired(c *gin.Context, warnings []string) {
	noStore(c)
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusBadRequest, ConfirmationBody{RequiresConfirmation: true, Warnings: warnings})
}

// Attachment streams a rendered file download.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
