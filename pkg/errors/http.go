package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

var errorStatusCodes = map[error]int{
	ErrNotFound:           http.StatusNotFound,
	ErrInvalidInput:       http.StatusBadRequest,
	ErrInternalError:      http.StatusInternalServerError,
	ErrTimeout:            http.StatusGatewayTimeout,
	ErrUnavailable:        http.StatusServiceUnavailable,
	ErrAlreadyExists:      http.StatusConflict,
	ErrUnauthenticated:    http.StatusUnauthorized,
	ErrFailedPrecondition: http.StatusPreconditionFailed,
	ErrCanceled:           http.StatusRequestTimeout,

	ErrUnknownTrigger:        http.StatusBadRequest,
	ErrCallNotFound:          http.StatusNotFound,
	ErrCallNotActive:         http.StatusConflict,
	ErrAgentNotFound:         http.StatusNotFound,
	ErrAlertNotFound:         http.StatusNotFound,
	ErrNoAgentAvailable:      http.StatusServiceUnavailable,
	ErrSummarizerUnavailable: http.StatusServiceUnavailable,
	ErrNotConnected:          http.StatusServiceUnavailable,
}

// WriteError writes a JSON error body with the status mapped from err
func WriteError(w http.ResponseWriter, err error) {
	var statusCode int
	var response map[string]interface{}

	var serr *Error
	switch {
	case err == nil:
		statusCode = http.StatusInternalServerError
		response = map[string]interface{}{"detail": "Unknown error"}
	case errors.As(err, &serr):
		statusCode = HTTPStatusFromError(serr)
		response = serr.AsJSON()
	default:
		statusCode = HTTPStatusFromError(err)
		response = map[string]interface{}{"detail": err.Error()}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// HTTPStatusFromError maps err to the status of the sentinel it wraps
func HTTPStatusFromError(err error) int {
	for sentinel, code := range errorStatusCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}
