// Package httpx carries the error taxonomy shared by every router: typed
// failures with an HTTP status, rendered as {"error": ...} JSON bodies.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ApiError is a domain failure with a client-facing status and message.
type ApiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *ApiError) Error() string {
	return e.Message
}

func BadRequest(message string) *ApiError {
	return &ApiError{Status: http.StatusBadRequest, Message: message}
}

func Unauthorized(message string) *ApiError {
	return &ApiError{Status: http.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *ApiError {
	return &ApiError{Status: http.StatusForbidden, Message: message}
}

func NotFound(message string) *ApiError {
	return &ApiError{Status: http.StatusNotFound, Message: message}
}

func Conflict(message string) *ApiError {
	return &ApiError{Status: http.StatusConflict, Message: message}
}

// Fail aborts the request with the mapped JSON body. Unknown errors render a
// generic 500 so internals never leak to the client.
func Fail(c *gin.Context, err error) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, apiErr)
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FailValidation renders binding errors the way the rest of the API reports
// them: a stable "validation failed" message plus per-field issues.
func FailValidation(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]FieldIssue, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			details = append(details, FieldIssue{
				Path:    lowerCamel(fieldError.Field()),
				Message: issueMessage(fieldError),
			})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
}

func issueMessage(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fieldError.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldError.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fieldError.Param())
	case "gt":
		return "must be positive"
	default:
		return "is invalid"
	}
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
