package handler

import (
	"errors"
	"net/http"

	"github.com/pkordes/weekend-poll/internal/domain"
	"github.com/pkordes/weekend-poll/internal/service"
)

// weekendBody is a candidate weekend on the wire. Dates stay strings on the
// way in so a malformed date surfaces as a validation message, not as
// "Invalid JSON".
type weekendBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type createPollRequest struct {
	Title     string        `json:"title"`
	HostName  string        `json:"hostName"`
	Weekends  []weekendBody `json:"weekends"`
	Attendees []string      `json:"attendees"`
}

type attendeeLinkBody struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type createPollResponse struct {
	AdminURL      string             `json:"adminUrl"`
	AttendeeLinks []attendeeLinkBody `json:"attendeeLinks"`
}

// CreatePoll handles POST /api/events.
func (s *Server) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := service.CreateInput{
		Title:         req.Title,
		HostName:      req.HostName,
		Weekends:      make([]domain.Weekend, len(req.Weekends)),
		AttendeeNames: req.Attendees,
	}
	for i, wk := range req.Weekends {
		in.Weekends[i] = domain.Weekend{Start: wk.Start, End: wk.End}
	}

	res, err := s.polls.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, unwrapMessage(err))
			return
		}
		s.internalError(r.Context(), w, "Failed to create event", err)
		return
	}

	writeJSON(w, http.StatusCreated, createPollResponse{
		AdminURL:      res.AdminURL,
		AttendeeLinks: linksToBody(res.AttendeeLinks),
	})
}

func linksToBody(links []service.AttendeeLink) []attendeeLinkBody {
	out := make([]attendeeLinkBody, len(links))
	for i, l := range links {
		out[i] = attendeeLinkBody{Name: l.Name, URL: l.URL}
	}
	return out
}
