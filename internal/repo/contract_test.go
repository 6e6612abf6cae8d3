package repo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/weekend-poll/internal/domain"
	"github.com/pkordes/weekend-poll/internal/repo"
)

// pollFixture returns a two-weekend, two-attendee poll with tokens unique to
// this call, so fixtures never collide on the UNIQUE token columns.
func pollFixture() domain.NewPoll {
	suffix := uuid.NewString()
	return domain.NewPoll{
		Title:    "Ski Trip",
		HostName: "Alice",
		Weekends: []domain.Weekend{
			{Start: "2025-02-01", End: "2025-02-02"},
			{Start: "2025-02-08", End: "2025-02-09"},
		},
		AdminToken: "admin-" + suffix,
		Attendees: []domain.NewAttendee{
			{Name: "John", Token: "john-" + suffix},
			{Name: "Dave", Token: "dave-" + suffix},
		},
	}
}

// runPollRepoContract runs the behaviour every PollRepo implementation must
// share. newRepo is called once per subtest.
func runPollRepoContract(t *testing.T, newRepo func(t *testing.T) repo.PollRepo) {
	ctx := context.Background()

	t.Run("Create keeps attendee order", func(t *testing.T) {
		r := newRepo(t)
		in := pollFixture()

		got, err := r.Create(ctx, in)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, got.ID)
		assert.Equal(t, in.Weekends, got.Weekends)
		require.Len(t, got.Attendees, 2)
		assert.Equal(t, "John", got.Attendees[0].Name)
		assert.Equal(t, "Dave", got.Attendees[1].Name)
		assert.NotEqual(t, got.Attendees[0].ID, got.Attendees[1].ID)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("GetByID round trip", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)

		require.NoError(t, err)
		assert.Equal(t, created.Title, got.Title)
		assert.Equal(t, created.AdminToken, got.AdminToken)
		assert.Equal(t, created.Weekends, got.Weekends)
		require.Len(t, got.Attendees, 2)
		assert.Equal(t, created.Attendees[0].Token, got.Attendees[0].Token)
		assert.Empty(t, got.Attendees[0].Responses)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		r := newRepo(t)

		_, err := r.GetByID(ctx, uuid.New())

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FindByToken", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)

		acc, err := r.FindByToken(ctx, created.Attendees[1].Token)

		require.NoError(t, err)
		assert.Equal(t, created.Attendees[1].ID, acc.Attendee.ID)
		assert.Equal(t, created.ID, acc.Attendee.PollID)
		assert.Len(t, acc.Weekends, 2)
	})

	t.Run("FindByToken rejects unknown and admin tokens", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)

		_, err = r.FindByToken(ctx, "no-such-token")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = r.FindByToken(ctx, created.AdminToken)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SetResponse set, clear, set", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)
		john := created.Attendees[0]

		require.NoError(t, r.SetResponse(ctx, john.ID, 0, domain.Yes))
		require.NoError(t, r.SetResponse(ctx, john.ID, 1, domain.Maybe))
		acc, err := r.FindByToken(ctx, john.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.Responses{0: domain.Yes, 1: domain.Maybe}, acc.Attendee.Responses)

		require.NoError(t, r.SetResponse(ctx, john.ID, 0, domain.Empty))
		acc, err = r.FindByToken(ctx, john.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.Responses{1: domain.Maybe}, acc.Attendee.Responses)

		require.NoError(t, r.SetResponse(ctx, john.ID, 0, domain.Yes))
		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.Yes, got.Attendees[0].Responses.Get(0))
		assert.Empty(t, got.Attendees[1].Responses, "other attendees are untouched")
	})

	t.Run("SetResponse overwrites", func(t *testing.T) {
		r := newRepo(t)
		created, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)
		id := created.Attendees[0].ID

		require.NoError(t, r.SetResponse(ctx, id, 0, domain.Yes))
		require.NoError(t, r.SetResponse(ctx, id, 0, domain.No))

		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.Responses{0: domain.No}, got.Attendees[0].Responses)
	})

	t.Run("SetResponse not found", func(t *testing.T) {
		r := newRepo(t)

		err := r.SetResponse(ctx, uuid.New(), 0, domain.Yes)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Create rejects a duplicate token", func(t *testing.T) {
		r := newRepo(t)
		first, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)

		dup := pollFixture()
		dup.Attendees[0].Token = first.Attendees[0].Token
		_, err = r.Create(ctx, dup)
		require.ErrorIs(t, err, repo.ErrDuplicateToken)

		// Nothing from the failed batch was stored.
		_, err = r.FindByToken(ctx, dup.Attendees[1].Token)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Create keeps admin and attendee tokens apart", func(t *testing.T) {
		r := newRepo(t)
		first, err := r.Create(ctx, pollFixture())
		require.NoError(t, err)

		adminReused := pollFixture()
		adminReused.AdminToken = first.Attendees[0].Token
		_, err = r.Create(ctx, adminReused)
		assert.ErrorIs(t, err, repo.ErrDuplicateToken, "admin token equal to another poll's attendee token")

		attendeeReused := pollFixture()
		attendeeReused.Attendees[1].Token = first.AdminToken
		_, err = r.Create(ctx, attendeeReused)
		assert.ErrorIs(t, err, repo.ErrDuplicateToken, "attendee token equal to another poll's admin token")

		selfReused := pollFixture()
		selfReused.Attendees[0].Token = selfReused.AdminToken
		_, err = r.Create(ctx, selfReused)
		assert.ErrorIs(t, err, repo.ErrDuplicateToken, "attendee token equal to its own admin token")

		for _, in := range []domain.NewPoll{adminReused, attendeeReused, selfReused} {
			_, err = r.FindByToken(ctx, in.Attendees[len(in.Attendees)-1].Token)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		}
	})

	t.Run("fifty attendees", func(t *testing.T) {
		r := newRepo(t)
		in := pollFixture()
		in.Attendees = nil
		for i := range domain.MaxAttendees {
			in.Attendees = append(in.Attendees, domain.NewAttendee{
				Name:  fmt.Sprintf("Guest %02d", i),
				Token: fmt.Sprintf("%s-%02d", in.AdminToken, i),
			})
		}

		created, err := r.Create(ctx, in)
		require.NoError(t, err)

		got, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, got.Attendees, domain.MaxAttendees)
		for i, a := range got.Attendees {
			assert.Equal(t, fmt.Sprintf("Guest %02d", i), a.Name)
		}
	})
}
