// Package service contains the business logic for the weekend poll API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/weekend-poll/internal/calendar"
	"github.com/pkordes/weekend-poll/internal/consensus"
	"github.com/pkordes/weekend-poll/internal/domain"
	"github.com/pkordes/weekend-poll/internal/repo"
	"github.com/pkordes/weekend-poll/internal/token"
)

// CreateInput is the raw request to open a poll. Nothing in it has been
// trimmed or checked yet.
type CreateInput struct {
	Title         string
	HostName      string
	Weekends      []domain.Weekend
	AttendeeNames []string
}

// AttendeeLink is the personal URL of one attendee.
type AttendeeLink struct {
	Name string
	URL  string
}

// CreateResult is everything the host needs after creating a poll. Links are
// in the same order as CreateInput.AttendeeNames.
type CreateResult struct {
	PollID        uuid.UUID
	AdminURL      string
	AttendeeLinks []AttendeeLink
}

// AttendeeView is an attendee as any token holder may see it: no token.
type AttendeeView struct {
	ID        uuid.UUID
	Name      string
	Responses domain.Responses
}

// PollView is the token-scoped read of a poll. InviteLinks is only filled
// for the admin; CurrentAttendeeID is uuid.Nil for the admin.
type PollView struct {
	ID                uuid.UUID
	Title             string
	HostName          string
	Weekends          []domain.Weekend
	Attendees         []AttendeeView
	CurrentAttendeeID uuid.UUID
	IsAdmin           bool
	InviteLinks       []AttendeeLink
	Consensus         consensus.Summary
}

// PollService implements the create, respond and view operations.
type PollService struct {
	repo    repo.PollRepo
	tokens  *token.Generator
	baseURL string
}

// NewPollService constructs a PollService. baseURL is the public origin used
// to build /e/<id>/<token> links; a trailing slash is ignored.
func NewPollService(r repo.PollRepo, tokens *token.Generator, baseURL string) *PollService {
	return &PollService{
		repo:    r,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Create validates in, mints an admin token and one token per attendee, and
// stores everything in one repo call. Validation stops at the first failure.
func (s *PollService) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	p, err := validateCreate(in)
	if err != nil {
		return CreateResult{}, fmt.Errorf("service.PollService.Create: %w", err)
	}

	set := s.tokens.NewSet()
	if p.AdminToken, err = set.New(); err != nil {
		return CreateResult{}, fmt.Errorf("service.PollService.Create: admin token: %w", err)
	}
	for i := range p.Attendees {
		if p.Attendees[i].Token, err = set.New(); err != nil {
			return CreateResult{}, fmt.Errorf("service.PollService.Create: attendee token: %w", err)
		}
	}

	poll, err := s.repo.Create(ctx, p)
	if err != nil {
		return CreateResult{}, fmt.Errorf("service.PollService.Create: %w", err)
	}

	res := CreateResult{
		PollID:        poll.ID,
		AdminURL:      s.link(poll.ID, poll.AdminToken),
		AttendeeLinks: make([]AttendeeLink, len(poll.Attendees)),
	}
	for i, a := range poll.Attendees {
		res.AttendeeLinks[i] = AttendeeLink{Name: a.Name, URL: s.link(poll.ID, a.Token)}
	}
	return res, nil
}

// SubmitResponse sets one weekend of the attendee owning tok to v, or clears
// it when v is domain.Empty. Input shape is checked before the token is
// looked up, and the index is bounds-checked against that attendee's poll.
func (s *PollService) SubmitResponse(ctx context.Context, tok string, index int, v domain.ResponseValue) error {
	switch {
	case tok == "":
		return fmt.Errorf("service.PollService.SubmitResponse: %w: Token required", domain.ErrValidation)
	case index < 0:
		return fmt.Errorf("service.PollService.SubmitResponse: %w: Valid weekendIndex required", domain.ErrValidation)
	case v != domain.Empty && !v.Valid():
		return fmt.Errorf("service.PollService.SubmitResponse: %w: Value must be yes, no, maybe, or null", domain.ErrValidation)
	}

	acc, err := s.repo.FindByToken(ctx, tok)
	if err != nil {
		return fmt.Errorf("service.PollService.SubmitResponse: %w", err)
	}
	if index >= len(acc.Weekends) {
		return fmt.Errorf("service.PollService.SubmitResponse: index %d of %d: %w", index, len(acc.Weekends), domain.ErrOutOfRange)
	}

	if err := s.repo.SetResponse(ctx, acc.Attendee.ID, index, v); err != nil {
		return fmt.Errorf("service.PollService.SubmitResponse: %w", err)
	}
	return nil
}

// View loads the poll and scopes it to tok, which must be the poll's admin
// token or one of its attendee tokens. Any mismatch is domain.ErrNotFound,
// the same as a poll that does not exist.
func (s *PollService) View(ctx context.Context, pollID uuid.UUID, tok string) (PollView, error) {
	if tok == "" {
		return PollView{}, fmt.Errorf("service.PollService.View: %w", domain.ErrNotFound)
	}

	poll, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return PollView{}, fmt.Errorf("service.PollService.View: %w", err)
	}

	v := PollView{
		ID:        poll.ID,
		Title:     poll.Title,
		HostName:  poll.HostName,
		Weekends:  poll.Weekends,
		Attendees: make([]AttendeeView, len(poll.Attendees)),
		IsAdmin:   token.Equal(poll.AdminToken, tok),
		Consensus: consensus.TallyAttendees(len(poll.Weekends), poll.Attendees),
	}
	for i, a := range poll.Attendees {
		v.Attendees[i] = AttendeeView{ID: a.ID, Name: a.Name, Responses: a.Responses}
		if token.Equal(a.Token, tok) {
			v.CurrentAttendeeID = a.ID
		}
	}

	if !v.IsAdmin && v.CurrentAttendeeID == uuid.Nil {
		return PollView{}, fmt.Errorf("service.PollService.View: %w", domain.ErrNotFound)
	}
	if v.IsAdmin {
		v.InviteLinks = make([]AttendeeLink, len(poll.Attendees))
		for i, a := range poll.Attendees {
			v.InviteLinks[i] = AttendeeLink{Name: a.Name, URL: s.link(poll.ID, a.Token)}
		}
	}
	return v, nil
}

func (s *PollService) link(pollID uuid.UUID, tok string) string {
	return s.baseURL + "/e/" + pollID.String() + "/" + tok
}

// validateCreate applies the creation rules in order and returns the
// normalised poll without tokens.
func validateCreate(in CreateInput) (domain.NewPoll, error) {
	title := strings.TrimSpace(in.Title)
	host := strings.TrimSpace(in.HostName)

	switch {
	case title == "":
		return domain.NewPoll{}, invalid("Title required")
	case utf8.RuneCountInString(title) > domain.MaxTitleLen:
		return domain.NewPoll{}, invalid(fmt.Sprintf("Title too long (max %d)", domain.MaxTitleLen))
	case host == "":
		return domain.NewPoll{}, invalid("Host name required")
	case utf8.RuneCountInString(host) > domain.MaxHostNameLen:
		return domain.NewPoll{}, invalid(fmt.Sprintf("Host name too long (max %d)", domain.MaxHostNameLen))
	case len(in.Weekends) == 0:
		return domain.NewPoll{}, invalid("At least one weekend required")
	case len(in.Weekends) > domain.MaxWeekends:
		return domain.NewPoll{}, invalid(fmt.Sprintf("Too many weekends (max %d)", domain.MaxWeekends))
	}

	for _, w := range in.Weekends {
		if err := validateWeekend(w); err != nil {
			return domain.NewPoll{}, err
		}
	}

	switch {
	case len(in.AttendeeNames) == 0:
		return domain.NewPoll{}, invalid("At least one attendee required")
	case len(in.AttendeeNames) > domain.MaxAttendees:
		return domain.NewPoll{}, invalid(fmt.Sprintf("Too many attendees (max %d)", domain.MaxAttendees))
	}

	attendees := make([]domain.NewAttendee, len(in.AttendeeNames))
	for i, name := range in.AttendeeNames {
		name = truncate(strings.TrimSpace(name), domain.MaxNameLen)
		if name == "" {
			return domain.NewPoll{}, invalid("Attendee name required")
		}
		attendees[i] = domain.NewAttendee{Name: name}
	}

	return domain.NewPoll{
		Title:     title,
		HostName:  host,
		Weekends:  append([]domain.Weekend(nil), in.Weekends...),
		Attendees: attendees,
	}, nil
}

func validateWeekend(w domain.Weekend) error {
	start, errStart := calendar.ParseDate(w.Start)
	end, errEnd := calendar.ParseDate(w.End)
	if err := errors.Join(errStart, errEnd); err != nil {
		return invalid("Invalid date format (YYYY-MM-DD)")
	}
	if end.Before(start) {
		return invalid("Weekend end date must be on or after start date")
	}
	return nil
}

// truncate cuts s to at most n characters, never splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}
