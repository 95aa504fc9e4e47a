package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Shakha99/backend-repo/internal/apperr"
)

// APIResponse is the standard response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError represents an error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// statusByKind maps error kinds to HTTP status codes
var statusByKind = map[apperr.Kind]int{
	apperr.KindBadRequest:      http.StatusBadRequest,
	apperr.KindUnauthenticated: http.StatusUnauthorized,
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindConflict:        http.StatusConflict,
	apperr.KindInvalidState:    http.StatusUnprocessableEntity,
	apperr.KindUpstream:        http.StatusBadGateway,
}

// FromError maps a categorized error to its stable code and status.
// Uncategorized errors are reported as INTERNAL_ERROR
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	LogRejected(r, err)

	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		InternalError(w, apperr.MessageOf(err))
		return
	}

	Error(w, status, string(kind), apperr.MessageOf(err))
}

// LogRejected logs a failed request. Uncategorized errors are logged as errors
func LogRejected(r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if _, ok := statusByKind[kind]; !ok {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		return
	}
	slog.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "code", kind, "error", err)
}

// Common error responses
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, string(apperr.KindBadRequest), message)
}

func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, string(apperr.KindInternal), message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, string(apperr.KindUnauthenticated), message)
}
