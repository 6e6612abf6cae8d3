package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/weekend-poll/internal/client"
	"github.com/pkordes/weekend-poll/internal/domain"
	"github.com/pkordes/weekend-poll/internal/handler"
	"github.com/pkordes/weekend-poll/internal/repo"
	"github.com/pkordes/weekend-poll/internal/service"
	"github.com/pkordes/weekend-poll/internal/token"
)

// newServer runs the real handler, service and memory store behind httptest.
func newServer(t *testing.T) *client.Client {
	t.Helper()
	svc := service.NewPollService(repo.NewMemoryPollRepo(), token.NewGenerator(), "http://poll.test")
	srv := httptest.NewServer(handler.NewRouter(handler.NewServer(svc, nil)))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, srv.Client())
}

func skiTrip() client.CreatePollRequest {
	return client.CreatePollRequest{
		Title:    "Ski Trip",
		HostName: "Alice",
		Weekends: []domain.Weekend{
			{Start: "2025-02-01", End: "2025-02-02"},
			{Start: "2025-02-08", End: "2025-02-09"},
			{Start: "2025-02-15", End: "2025-02-16"},
		},
		Attendees: []string{"John", "Dave"},
	}
}

func mustParse(t *testing.T, link string) (uuid.UUID, string) {
	t.Helper()
	id, tok, err := client.ParseLink(link)
	require.NoError(t, err)
	return id, tok
}

func TestClient_FullFlow(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	created, err := c.CreatePoll(ctx, skiTrip())
	require.NoError(t, err)
	require.Len(t, created.AttendeeLinks, 2)

	pollID, admin := mustParse(t, created.AdminURL)
	_, john := mustParse(t, created.AttendeeLinks[0].URL)
	_, dave := mustParse(t, created.AttendeeLinks[1].URL)

	require.NoError(t, c.SubmitResponse(ctx, john, 0, domain.Yes))
	require.NoError(t, c.SubmitResponse(ctx, john, 1, domain.Maybe))
	require.NoError(t, c.SubmitResponse(ctx, dave, 0, domain.Yes))
	require.NoError(t, c.SubmitResponse(ctx, dave, 2, domain.No))

	v, err := c.View(ctx, pollID, admin)
	require.NoError(t, err)
	assert.True(t, v.IsAdmin)
	assert.Nil(t, v.CurrentAttendeeID)
	assert.Len(t, v.InviteLinks, 2)
	require.NotNil(t, v.Consensus.BestWeekend)
	assert.Equal(t, 0, *v.Consensus.BestWeekend)
	assert.InDelta(t, 0.25, v.Consensus.Weekends[1].Score, 1e-9)

	mine, err := c.View(ctx, pollID, dave)
	require.NoError(t, err)
	me, ok := mine.Me()
	require.True(t, ok)
	assert.Equal(t, "Dave", me.Name)
	assert.Equal(t, domain.Responses{0: domain.Yes, 2: domain.No}, me.Responses)
	assert.Empty(t, mine.InviteLinks)
}

func TestClient_ClearAndErrors(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	created, err := c.CreatePoll(ctx, skiTrip())
	require.NoError(t, err)
	pollID, john := mustParse(t, created.AttendeeLinks[0].URL)

	require.NoError(t, c.SubmitResponse(ctx, john, 1, domain.Maybe))
	require.NoError(t, c.SubmitResponse(ctx, john, 1, domain.Empty))

	v, err := c.View(ctx, pollID, john)
	require.NoError(t, err)
	assert.False(t, v.Consensus.HasVotes)
	assert.Nil(t, v.Consensus.BestWeekend)

	err = c.SubmitResponse(ctx, john, 3, domain.Yes)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid weekend index", apiErr.Message)

	err = c.SubmitResponse(ctx, "forged", 0, domain.Yes)
	assert.True(t, client.IsNotFound(err))

	_, err = c.View(ctx, uuid.New(), john)
	assert.True(t, client.IsNotFound(err))
}

func TestClient_CreateValidation(t *testing.T) {
	c := newServer(t)
	req := skiTrip()
	req.HostName = " "

	_, err := c.CreatePoll(context.Background(), req)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Host name required", apiErr.Message)
}

func TestParseLink(t *testing.T) {
	id := uuid.New()

	got, tok, err := client.ParseLink("https://plan.example/e/" + id.String() + "/abc_-9")
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "abc_-9", tok)

	for _, bad := range []string{
		"https://plan.example/x/" + id.String() + "/abc",
		"https://plan.example/e/not-a-uuid/abc",
		"https://plan.example/e/" + id.String(),
	} {
		_, _, err := client.ParseLink(bad)
		assert.Error(t, err, bad)
	}
}
