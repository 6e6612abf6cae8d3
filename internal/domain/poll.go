// Package domain contains the core data types for the weekend poll API.
// This package has no dependencies beyond uuid and is imported by every
// other internal package (calendar, consensus, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Limits enforced when a poll is created.
const (
	MaxTitleLen    = 200
	MaxHostNameLen = 100
	MaxNameLen     = 100
	MaxWeekends    = 20
	MaxAttendees   = 50
)

// Weekend is one candidate date range. Start and End are YYYY-MM-DD strings;
// they compare correctly as plain strings because the format is fixed-width.
type Weekend struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Poll is a single trip-planning vote. It is created once, together with all
// of its attendees, and never edited afterwards.
//
// The position of a Weekend in Weekends is its weekend index: the stable key
// used by every attendee response.
type Poll struct {
	ID         uuid.UUID
	Title      string
	HostName   string
	Weekends   []Weekend
	AdminToken string
	Attendees  []Attendee
	CreatedAt  time.Time
}

// Attendee is one invited person. Token is the only credential that lets
// somebody write this attendee's responses.
type Attendee struct {
	ID        uuid.UUID
	PollID    uuid.UUID
	Name      string
	Token     string
	Responses Responses
}

// AttendeeAccess is what a token resolves to when an attendee submits a
// response: the attendee plus the weekend list of the poll they belong to.
type AttendeeAccess struct {
	Attendee Attendee
	Weekends []Weekend
}

// NewPoll is the validated input for creating a poll. Tokens are minted by the
// service layer before it reaches the repo.
type NewPoll struct {
	Title      string
	HostName   string
	Weekends   []Weekend
	AdminToken string
	Attendees  []NewAttendee
}

// NewAttendee is one attendee row to insert alongside a NewPoll.
type NewAttendee struct {
	Name  string
	Token string
}
