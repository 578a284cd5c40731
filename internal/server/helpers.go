package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rezilient/restore-request-service/internal/models"
)

// ErrorResponse is the standard error format for API responses. Every
// non-success response carries a reason code from the closed vocabulary.
type ErrorResponse struct {
	Error      string            `json:"error"`
	ReasonCode models.ReasonCode `json:"reason_code"`
	Message    string            `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a plain error with reason code "none".
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: models.ErrCodeInternal, ReasonCode: models.ReasonNone, Message: message})
}

// WriteRequestError maps a service-layer RequestError onto the wire.
func WriteRequestError(w http.ResponseWriter, err error) {
	reqErr := models.AsRequestError(err)
	WriteJSON(w, reqErr.Status, ErrorResponse{
		Error:      reqErr.Code,
		ReasonCode: reqErr.ReasonCode,
		Message:    reqErr.Message,
	})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// Otherwise writes a 405 and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:      models.ErrCodeInvalidRequest,
		ReasonCode: models.ReasonNone,
		Message:    "method not allowed",
	})
	return false
}

// DecodeJSON reads and decodes the request body into v. Returns false and
// writes a 400 invalid_request if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteRequestError(w, models.BadRequest("request body is required"))
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20) // 4MB limit
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		WriteRequestError(w, models.BadRequest("invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// PathParam extracts a path parameter between prefix and suffix. For
// /v1/jobs/{id}/complete, PathParam(r, "/v1/jobs/", "/complete") yields {id}.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
