package api

import (
	"errors"
	"net/http"
	"time"

	apperrors "regdraft/internal/errors"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the response envelope.
const (
	CodeSelectionUnavailable = "SELECTION_UNAVAILABLE"
	CodeValidationRejected   = "VALIDATION_REJECTED"
	CodeGenerationFailed     = "GENERATION_FAILED"
	CodeNoMatch              = "NO_MATCH"
	CodeNotFound             = "NOT_FOUND"
	CodeBadRequest           = "BAD_REQUEST"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Choices offered to the user when an edit could not be located.
const (
	ChoiceReplaceSection = "replace_section"
	ChoiceReselect       = "reselect"
	ChoiceCancel         = "cancel"
)

type APIResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NoMatchDetails is attached to NO_MATCH errors.
type NoMatchDetails struct {
	Preview    string   `json:"preview"`
	Closest    string   `json:"closest,omitempty"`
	Similarity float64  `json:"similarity"`
	Attempted  []string `json:"attempted"`
	Choices    []string `json:"choices"`
}

func success(c *gin.Context, status int, data any, message string) {
	c.JSON(status, &APIResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	})
}

func failure(c *gin.Context, status int, code, message string, details any) {
	c.JSON(status, &APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	})
}

// respondError maps a domain error onto status, code and details.
func respondError(c *gin.Context, err error) {
	if nm, ok := apperrors.AsNoMatch(err); ok {
		failure(c, http.StatusConflict, CodeNoMatch, "Could not locate the selected text in the section", NoMatchDetails{
			Preview:    nm.Preview,
			Closest:    nm.Closest,
			Similarity: nm.Similarity,
			Attempted:  nm.Attempted,
			Choices:    []string{ChoiceReplaceSection, ChoiceReselect, ChoiceCancel},
		})
		return
	}

	var verr *apperrors.ValidationError
	switch {
	case apperrors.IsNotFound(err):
		failure(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.As(err, &verr):
		failure(c, http.StatusBadRequest, CodeBadRequest, err.Error(), gin.H{"field": verr.Field})
	case errors.Is(err, apperrors.ErrSelectionUnavailable):
		failure(c, http.StatusUnprocessableEntity, CodeSelectionUnavailable, "Select text or place the cursor in a section", nil)
	case errors.Is(err, apperrors.ErrValidationRejected):
		failure(c, http.StatusUnprocessableEntity, CodeValidationRejected, err.Error(), nil)
	case apperrors.IsGeneration(err):
		failure(c, http.StatusBadGateway, CodeGenerationFailed, "Edit generation failed, please retry", nil)
	case errors.Is(err, apperrors.ErrInvalidRequest):
		failure(c, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
	default:
		failure(c, http.StatusInternalServerError, CodeInternal, "An internal error occurred", nil)
	}
}
