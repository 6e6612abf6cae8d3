package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// submitResponseRequest keeps every field raw so that a missing field, a JSON
// null and a value of the wrong type can each be told apart.
type submitResponseRequest struct {
	Token        json.RawMessage `json:"token"`
	WeekendIndex json.RawMessage `json:"weekendIndex"`
	Value        json.RawMessage `json:"value"`
}

type submitResponseResponse struct {
	Success bool `json:"success"`
}

// SubmitResponse handles POST /api/responses.
func (s *Server) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req submitResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tok, ok := parseToken(req.Token)
	if !ok {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}
	index, ok := parseWeekendIndex(req.WeekendIndex)
	if !ok {
		writeError(w, http.StatusBadRequest, "Valid weekendIndex required")
		return
	}
	value, ok := parseValue(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "Value must be yes, no, maybe, or null")
		return
	}

	err := s.polls.SubmitResponse(r.Context(), tok, index, value)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, submitResponseResponse{Success: true})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, unwrapMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Invalid token")
	case errors.Is(err, domain.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, "Invalid weekend index")
	default:
		s.internalError(r.Context(), w, "Failed to update response", err)
	}
}

// parseToken accepts only a non-empty JSON string.
func parseToken(raw json.RawMessage) (string, bool) {
	var tok string
	if len(raw) == 0 || json.Unmarshal(raw, &tok) != nil || tok == "" {
		return "", false
	}
	return tok, true
}

// parseWeekendIndex accepts a non-negative integral JSON number. Integers too
// large for an int are clamped so the bounds check rejects them as out of
// range rather than as malformed.
func parseWeekendIndex(raw json.RawMessage) (int, bool) {
	var f float64
	if len(raw) == 0 || string(raw) == "null" || json.Unmarshal(raw, &f) != nil {
		return 0, false
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	return int(f), true
}

// parseValue accepts "yes", "no", "maybe" or null. null maps to domain.Empty.
// A missing field is rejected; clearing has to be asked for explicitly.
func parseValue(raw json.RawMessage) (domain.ResponseValue, bool) {
	if len(raw) == 0 {
		return domain.Empty, false
	}
	if string(raw) == "null" {
		return domain.Empty, true
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return domain.Empty, false
	}
	v, err := domain.ParseResponseValue(s)
	if err != nil {
		return domain.Empty, false
	}
	return v, true
}
