// Package client is a Go client for the weekend poll HTTP API, plus Ballot,
// the optimistic per-attendee response state used by interactive frontends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weekend poll API: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// CreatePollRequest is the body of POST /api/events.
type CreatePollRequest struct {
	Title     string           `json:"title"`
	HostName  string           `json:"hostName"`
	Weekends  []domain.Weekend `json:"weekends"`
	Attendees []string         `json:"attendees"`
}

// AttendeeLink is one personal link.
type AttendeeLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// CreatePollResponse is the 201 body of POST /api/events.
type CreatePollResponse struct {
	AdminURL      string         `json:"adminUrl"`
	AttendeeLinks []AttendeeLink `json:"attendeeLinks"`
}

// Attendee is an attendee as listed in a poll view.
type Attendee struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Responses domain.Responses `json:"responses"`
}

// WeekendScore is the tally of one weekend.
type WeekendScore struct {
	Index int     `json:"index"`
	Yes   int     `json:"yes"`
	Maybe int     `json:"maybe"`
	No    int     `json:"no"`
	Score float64 `json:"score"`
}

// Consensus is the server-side aggregate. BestWeekend is nil until a vote exists.
type Consensus struct {
	Weekends    []WeekendScore `json:"weekends"`
	HasVotes    bool           `json:"hasVotes"`
	BestWeekend *int           `json:"bestWeekend"`
}

// PollView is the body of GET /api/events/{pollId}/{token}.
type PollView struct {
	ID                uuid.UUID        `json:"id"`
	Title             string           `json:"title"`
	HostName          string           `json:"hostName"`
	Weekends          []domain.Weekend `json:"weekends"`
	Attendees         []Attendee       `json:"attendees"`
	CurrentAttendeeID *uuid.UUID       `json:"currentAttendeeId"`
	IsAdmin           bool             `json:"isAdmin"`
	InviteLinks       []AttendeeLink   `json:"inviteLinks"`
	Consensus         Consensus        `json:"consensus"`
}

// Me returns the attendee the view was requested as, or false for the admin.
func (v PollView) Me() (Attendee, bool) {
	if v.CurrentAttendeeID == nil {
		return Attendee{}, false
	}
	for _, a := range v.Attendees {
		if a.ID == *v.CurrentAttendeeID {
			return a, true
		}
	}
	return Attendee{}, false
}

type submitRequest struct {
	Token        string  `json:"token"`
	WeekendIndex int     `json:"weekendIndex"`
	Value        *string `json:"value"`
}

// Client talks to one API server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the server at baseURL. A nil hc uses a client
// with a 10 second timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// CreatePoll opens a new poll.
func (c *Client) CreatePoll(ctx context.Context, req CreatePollRequest) (CreatePollResponse, error) {
	var out CreatePollResponse
	if err := c.do(ctx, http.MethodPost, "/api/events", req, http.StatusCreated, &out); err != nil {
		return CreatePollResponse{}, fmt.Errorf("client.CreatePoll: %w", err)
	}
	return out, nil
}

// SubmitResponse sets one weekend for the attendee owning token. domain.Empty
// is sent as null and clears the entry.
func (c *Client) SubmitResponse(ctx context.Context, token string, index int, v domain.ResponseValue) error {
	body := submitRequest{Token: token, WeekendIndex: index}
	if v != domain.Empty {
		s := string(v)
		body.Value = &s
	}
	if err := c.do(ctx, http.MethodPost, "/api/responses", body, http.StatusOK, nil); err != nil {
		return fmt.Errorf("client.SubmitResponse: %w", err)
	}
	return nil
}

// View reads the poll as the holder of token.
func (c *Client) View(ctx context.Context, pollID uuid.UUID, token string) (PollView, error) {
	var out PollView
	path := "/api/events/" + pollID.String() + "/" + url.PathEscape(token)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return PollView{}, fmt.Errorf("client.View: %w", err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&eb) == nil {
			apiErr.Message = eb.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ParseLink splits a poll link of the form <base>/e/<pollId>/<token>.
func ParseLink(link string) (uuid.UUID, string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("client.ParseLink: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	n := len(parts)
	if n < 3 || parts[n-3] != "e" || parts[n-1] == "" {
		return uuid.Nil, "", fmt.Errorf("client.ParseLink: %q is not a poll link", link)
	}
	id, err := uuid.Parse(parts[n-2])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("client.ParseLink: %w", err)
	}
	return id, parts[n-1], nil
}
