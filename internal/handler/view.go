package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/weekend-poll/internal/consensus"
	"github.com/pkordes/weekend-poll/internal/domain"
	"github.com/pkordes/weekend-poll/internal/service"
)

type attendeeView struct {
	ID        openapi_types.UUID `json:"id"`
	Name      string             `json:"name"`
	Responses domain.Responses   `json:"responses"`
}

type weekendScore struct {
	Index int     `json:"index"`
	Yes   int     `json:"yes"`
	Maybe int     `json:"maybe"`
	No    int     `json:"no"`
	Score float64 `json:"score"`
}

// consensusView omits bestWeekend until at least one vote exists.
type consensusView struct {
	Weekends    []weekendScore `json:"weekends"`
	HasVotes    bool           `json:"hasVotes"`
	BestWeekend *int           `json:"bestWeekend,omitempty"`
}

type pollViewResponse struct {
	ID                openapi_types.UUID  `json:"id"`
	Title             string              `json:"title"`
	HostName          string              `json:"hostName"`
	Weekends          []weekendBody       `json:"weekends"`
	Attendees         []attendeeView      `json:"attendees"`
	CurrentAttendeeID *openapi_types.UUID `json:"currentAttendeeId,omitempty"`
	IsAdmin           bool                `json:"isAdmin"`
	InviteLinks       []attendeeLinkBody  `json:"inviteLinks,omitempty"`
	Consensus         consensusView       `json:"consensus"`
}

// ViewPoll handles GET /api/events/{pollId}/{token}. A malformed poll ID is
// answered exactly like an unknown one.
func (s *Server) ViewPoll(w http.ResponseWriter, r *http.Request) {
	var pollID openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "pollId", chi.URLParam(r, "pollId"), &pollID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}

	v, err := s.polls.View(r.Context(), pollID, chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		s.internalError(r.Context(), w, "Failed to load event", err)
		return
	}

	writeJSON(w, http.StatusOK, viewToResponse(v))
}

func viewToResponse(v service.PollView) pollViewResponse {
	out := pollViewResponse{
		ID:        v.ID,
		Title:     v.Title,
		HostName:  v.HostName,
		Weekends:  make([]weekendBody, len(v.Weekends)),
		Attendees: make([]attendeeView, len(v.Attendees)),
		IsAdmin:   v.IsAdmin,
		Consensus: consensusToResponse(v.Consensus),
	}
	for i, wk := range v.Weekends {
		out.Weekends[i] = weekendBody{Start: wk.Start, End: wk.End}
	}
	for i, a := range v.Attendees {
		resp := a.Responses
		if resp == nil {
			resp = domain.Responses{}
		}
		out.Attendees[i] = attendeeView{ID: a.ID, Name: a.Name, Responses: resp}
	}
	if v.CurrentAttendeeID != uuid.Nil {
		id := v.CurrentAttendeeID
		out.CurrentAttendeeID = &id
	}
	if v.IsAdmin {
		out.InviteLinks = linksToBody(v.InviteLinks)
	}
	return out
}

func consensusToResponse(s consensus.Summary) consensusView {
	out := consensusView{
		Weekends: make([]weekendScore, len(s.Weekends)),
		HasVotes: s.HasVotes,
	}
	for i, w := range s.Weekends {
		out.Weekends[i] = weekendScore{
			Index: w.Index,
			Yes:   w.Counts.Yes,
			Maybe: w.Counts.Maybe,
			No:    w.Counts.No,
			Score: w.Score,
		}
	}
	if best, ok := s.BestWeekend(); ok {
		out.BestWeekend = &best
	}
	return out
}
