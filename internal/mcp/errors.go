package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
)

// APIError represents an MCP tool error payload.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to
// INTERNAL without leaking their message.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, event.ErrInvalidEvent):
		return &APIError{Code: "INVALID_EVENT", Message: err.Error(), RecoveryHint: "Check object type, timestamp and declared custom events"}
	case errors.Is(err, event.ErrAppNotFound), errors.Is(err, app.ErrAppNotFound):
		return &APIError{Code: "APP_NOT_FOUND", Message: "app not found", RecoveryHint: "Configure the app with PUT /v1/app"}
	case errors.Is(err, participant.ErrVersionNotFound):
		return &APIError{Code: "VERSION_NOT_FOUND", Message: "participant version not found"}
	case errors.Is(err, participant.ErrInvalidInput), errors.Is(err, app.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, event.ErrConcurrentModification), errors.Is(err, participant.ErrConcurrentModification):
		return &APIError{Code: "CONCURRENT_MODIFICATION", Message: err.Error(), RecoveryHint: "Retry the call"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}

func invalidArgument(format string, args ...any) *APIError {
	return &APIError{Code: "INVALID_ARGUMENT", Message: fmt.Sprintf(format, args...)}
}
