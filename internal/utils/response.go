package utils

import (
	"errors"
	"net/http"
	"time"

	"ms-onboarding/internal/models"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message string, err error) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     err.Error(),
		Retryable: models.Retryable(err),
		Timestamp: time.Now(),
	}
}

// HTTPStatus maps the core's error taxonomy onto HTTP status codes. The
// core carries no presentation text; this is the whole translation.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrNotEligibleForResubmission):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUnauthorizedTransition):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNoEligibleCandidates),
		errors.Is(err, models.ErrStallNoLongerVacant),
		errors.Is(err, models.ErrVersionConflict),
		errors.Is(err, models.ErrDuplicateCertificate):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
