package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"warehouse-inventory-api/internal/apperr"
)

// ErrorBody matches the auth middleware's error shape
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Warn("encoding response", "error", err)
	}
}

// WriteData wraps data in the standard envelope
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, map[string]any{
		"data": data,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
		},
	})
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateKey, apperr.KindInvalidTransition, apperr.KindStale:
		return http.StatusConflict
	case apperr.KindUnknownID:
		return http.StatusUnprocessableEntity
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err with the status of its kind. Infrastructure details
// are logged, never returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Unavailable("unexpected failure", err).(*apperr.Error)
	}
	status := StatusFor(e.Kind)

	body := ErrorBody{Error: e.Error(), Code: e.Code(), Field: e.Field}
	if e.Kind == apperr.KindStorageUnavailable {
		slog.Default().ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "storage unavailable, try again"
	}
	WriteJSON(w, status, body)
}

// BadRequest reports a request the server could not parse
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: msg, Code: "BAD_REQUEST"})
}
