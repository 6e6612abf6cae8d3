package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// errorBody is the shape of every non-2xx response: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

const (
	msgInvalidJSON  = "Invalid JSON"
	msgBodyTooLarge = "Request body too large"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": message} with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// decodeBody decodes the request body into dst. On failure it writes the
// error response itself and returns false: 413 when http.MaxBytesReader cut
// the body off, 400 "Invalid JSON" for anything else.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return false
	}
	writeError(w, http.StatusBadRequest, msgInvalidJSON)
	return false
}

// internalError logs err with the request ID and writes an opaque 500.
// The caller-facing message never contains err itself.
func (s *Server) internalError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	s.log.ErrorContext(ctx, message,
		"error", err,
		"request_id", chimiddleware.GetReqID(ctx),
	)
	writeError(w, http.StatusInternalServerError, message)
}

// unwrapMessage extracts the human-readable part from a wrapped validation
// error. e.g. "service.PollService.Create: validation error: Title required"
// → "Title required"
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
