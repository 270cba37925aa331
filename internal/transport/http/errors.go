package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"securetransfer/internal/transfer"
	"securetransfer/pkg/platform/sentinel"
)

// httpError is a client-facing error with a fixed status and code.
type httpError struct {
	status      int
	code        string
	description string
}

func (e *httpError) Error() string { return e.description }

var (
	errUnauthenticated = &httpError{http.StatusUnauthorized, "unauthorized", "authentication required"}
	errTooLarge        = &httpError{http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds the size limit"}
)

func badRequest(description string) error {
	return &httpError{http.StatusBadRequest, "bad_request", description}
}

// toHTTP maps service errors onto status, code and an optional description.
// Internal errors never expose their message.
func toHTTP(err error) (int, string, string) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he.status, he.code, he.description
	case errors.Is(err, transfer.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, transfer.ErrForbidden):
		return http.StatusForbidden, "forbidden", "caller may not access this transfer"
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound, "not_found", "transfer not found"
	case errors.Is(err, transfer.ErrNotCompleted):
		return http.StatusConflict, "not_completed", "transfer has not completed"
	default:
		return http.StatusInternalServerError, "internal_error", ""
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code, description := toHTTP(err)
	body := map[string]string{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
