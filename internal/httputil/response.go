// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`

	// FailedStep is set when the failing operation was a multi-step workflow.
	FailedStep string `json:"failed_step,omitempty"`
}

// stepFailure is implemented by errors that name the workflow step that failed.
type stepFailure interface {
	FailedStep() string
}

// HandleErrorGin maps domain errors to HTTP status codes and returns a JSON response using Gin.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := mapError(err)
	var failure stepFailure
	if errors.As(err, &failure) {
		errorResponse.FailedStep = failure.FailedStep()
	}

	// Log the full error details (including wrapped errors)
	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

func mapError(err error) (int, ErrorResponse) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: apperrors.Message(err),
		}

	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: apperrors.Message(err),
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_input",
			Message: apperrors.Message(err),
		}

	case apperrors.Is(err, apperrors.ErrExhausted):
		return http.StatusConflict, ErrorResponse{
			Error:   "exhausted",
			Message: apperrors.Message(err),
		}

	case apperrors.Is(err, apperrors.ErrBusy):
		return http.StatusTooManyRequests, ErrorResponse{
			Error:   "busy",
			Message: "The resource is busy, try again shortly",
		}

	case apperrors.Is(err, apperrors.ErrTimeout):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error:   "timeout",
			Message: "The operation did not complete in time and its outcome is unknown",
		}

	default:
		// For unknown/internal errors, don't expose details to the client
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	}

	c.JSON(http.StatusBadRequest, errorResponse)
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	message := err.Error()
	if apperrors.Is(err, apperrors.ErrInvalidInput) {
		message = apperrors.Message(err)
	}

	errorResponse := ErrorResponse{
		Error:   "validation_error",
		Message: message,
	}

	c.JSON(http.StatusUnprocessableEntity, errorResponse)
}
