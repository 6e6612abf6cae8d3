// Package repo contains all persistence logic for the weekend poll API.
// PollRepo has a Postgres implementation (this file) and an in-process one
// (memory.go). No business logic lives here, only storage and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test. Begin on a
// pgx.Tx opens a savepoint, so Create stays atomic in both cases.
type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PollRepo defines the persistence operations for polls and their attendees.
// The service layer depends on this interface, not on an implementation.
type PollRepo interface {
	// Create inserts the poll and all of its attendees atomically, keeping the
	// attendee order of p.Attendees. Either everything is stored or nothing is.
	Create(ctx context.Context, p domain.NewPoll) (domain.Poll, error)

	// GetByID returns a poll with its attendees in creation order.
	// Returns domain.ErrNotFound if no poll with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error)

	// FindByToken resolves an attendee token to the attendee and the weekend
	// list of their poll. Returns domain.ErrNotFound for unknown tokens.
	FindByToken(ctx context.Context, token string) (domain.AttendeeAccess, error)

	// SetResponse stores v under index for one attendee, or removes the key
	// when v is domain.Empty. Only that key is touched.
	// Returns domain.ErrNotFound if the attendee does not exist.
	SetResponse(ctx context.Context, attendeeID uuid.UUID, index int, v domain.ResponseValue) error
}

// ErrDuplicateToken is returned by Create when a token of the new poll is
// already in use anywhere in the store, as an admin token or an attendee
// token, or appears twice in the batch.
var ErrDuplicateToken = errors.New("duplicate token")

// createLockKey is the advisory lock key that serializes pgPollRepo.Create.
const createLockKey int64 = 0x706f6c6c // "poll"

// batchTokens lists the admin token followed by every attendee token and
// rejects a batch that repeats one.
func batchTokens(p domain.NewPoll) ([]string, error) {
	tokens := make([]string, 0, len(p.Attendees)+1)
	seen := make(map[string]struct{}, len(p.Attendees)+1)
	for _, t := range append([]string{p.AdminToken}, attendeeTokens(p.Attendees)...) {
		if _, dup := seen[t]; dup {
			return nil, ErrDuplicateToken
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// duplicateToken maps a unique violation to ErrDuplicateToken, keeping the
// driver error in the chain.
func duplicateToken(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrDuplicateToken, err)
	}
	return err
}

// pgPollRepo is the Postgres implementation of PollRepo.
type pgPollRepo struct {
	db db
}

// NewPollRepo constructs a PollRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPollRepo(db db) PollRepo {
	return &pgPollRepo{db: db}
}

// Create inserts the poll row and one attendee row per input attendee inside
// a single transaction.
func (r *pgPollRepo) Create(ctx context.Context, p domain.NewPoll) (domain.Poll, error) {
	const insertPoll = `
		INSERT INTO polls (title, host_name, weekends, admin_token)
		VALUES (@title, @host_name, @weekends, @admin_token)
		RETURNING id, created_at`

	const insertAttendee = `
		INSERT INTO attendees (poll_id, position, name, token)
		VALUES (@poll_id, @position, @name, @token)
		RETURNING id`

	// Admin and attendee tokens live in different tables, so the UNIQUE
	// constraints alone do not keep the two sets apart. Creates are serialized
	// on an advisory lock and check both tables before inserting.
	const lockCreate = `SELECT pg_advisory_xact_lock(@key)`

	const tokenTaken = `
		SELECT EXISTS (SELECT 1 FROM polls WHERE admin_token = ANY(@tokens))
		    OR EXISTS (SELECT 1 FROM attendees WHERE token = ANY(@tokens))`

	tokens, err := batchTokens(p)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: %w", err)
	}

	weekends, err := json.Marshal(p.Weekends)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: encode weekends: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockCreate, pgx.NamedArgs{"key": createLockKey}); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: lock: %w", err)
	}
	var taken bool
	if err := tx.QueryRow(ctx, tokenTaken, pgx.NamedArgs{"tokens": tokens}).Scan(&taken); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: check tokens: %w", err)
	}
	if taken {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: %w", ErrDuplicateToken)
	}

	poll := domain.Poll{
		Title:      p.Title,
		HostName:   p.HostName,
		Weekends:   append([]domain.Weekend(nil), p.Weekends...),
		AdminToken: p.AdminToken,
		Attendees:  make([]domain.Attendee, 0, len(p.Attendees)),
	}

	var pollID pgtype.UUID
	err = tx.QueryRow(ctx, insertPoll, pgx.NamedArgs{
		"title":       p.Title,
		"host_name":   p.HostName,
		"weekends":    weekends,
		"admin_token": p.AdminToken,
	}).Scan(&pollID, &poll.CreatedAt)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: insert poll: %w", duplicateToken(err))
	}
	poll.ID = uuid.UUID(pollID.Bytes)

	for i, a := range p.Attendees {
		var id pgtype.UUID
		err := tx.QueryRow(ctx, insertAttendee, pgx.NamedArgs{
			"poll_id":  poll.ID,
			"position": i,
			"name":     a.Name,
			"token":    a.Token,
		}).Scan(&id)
		if err != nil {
			return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: insert attendee %d: %w", i, duplicateToken(err))
		}
		poll.Attendees = append(poll.Attendees, domain.Attendee{
			ID:        uuid.UUID(id.Bytes),
			PollID:    poll.ID,
			Name:      a.Name,
			Token:     a.Token,
			Responses: domain.Responses{},
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.Create: commit: %w", err)
	}
	return poll, nil
}

// GetByID loads the poll row and then its attendees ordered by position.
func (r *pgPollRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Poll, error) {
	const pollQ = `
		SELECT id, title, host_name, weekends, admin_token, created_at
		FROM polls
		WHERE id = @id`

	const attendeesQ = `
		SELECT id, poll_id, name, token, responses
		FROM attendees
		WHERE poll_id = @id
		ORDER BY position`

	poll, err := scanPoll(r.db.QueryRow(ctx, pollQ, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: %w", err)
	}

	rows, err := r.db.Query(ctx, attendeesQ, pgx.NamedArgs{"id": id})
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: attendees: %w", err)
	}
	defer rows.Close()

	poll.Attendees = []domain.Attendee{}
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: scan: %w", err)
		}
		poll.Attendees = append(poll.Attendees, a)
	}
	if err := rows.Err(); err != nil {
		return domain.Poll{}, fmt.Errorf("repo.PollRepo.GetByID: rows: %w", err)
	}
	return poll, nil
}

// FindByToken joins the attendee to its poll to fetch the weekend list in one
// round trip.
func (r *pgPollRepo) FindByToken(ctx context.Context, token string) (domain.AttendeeAccess, error) {
	const q = `
		SELECT a.id, a.poll_id, a.name, a.token, a.responses, p.weekends
		FROM attendees a
		JOIN polls p ON p.id = a.poll_id
		WHERE a.token = @token`

	var (
		acc         domain.AttendeeAccess
		id, pollID  pgtype.UUID
		rawResp     []byte
		rawWeekends []byte
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"token": token}).
		Scan(&id, &pollID, &acc.Attendee.Name, &acc.Attendee.Token, &rawResp, &rawWeekends)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AttendeeAccess{}, fmt.Errorf("repo.PollRepo.FindByToken: %w", domain.ErrNotFound)
		}
		return domain.AttendeeAccess{}, fmt.Errorf("repo.PollRepo.FindByToken: %w", err)
	}

	acc.Attendee.ID = uuid.UUID(id.Bytes)
	acc.Attendee.PollID = uuid.UUID(pollID.Bytes)
	if acc.Attendee.Responses, err = decodeResponses(rawResp); err != nil {
		return domain.AttendeeAccess{}, fmt.Errorf("repo.PollRepo.FindByToken: %w", err)
	}
	if err := json.Unmarshal(rawWeekends, &acc.Weekends); err != nil {
		return domain.AttendeeAccess{}, fmt.Errorf("repo.PollRepo.FindByToken: decode weekends: %w", err)
	}
	return acc, nil
}

// SetResponse rewrites a single key of the responses object in one UPDATE.
// The merge happens inside Postgres, so writes to different indices never
// overwrite each other and writes to the same index are last-write-wins.
func (r *pgPollRepo) SetResponse(ctx context.Context, attendeeID uuid.UUID, index int, v domain.ResponseValue) error {
	const set = `
		UPDATE attendees
		SET responses  = responses || jsonb_build_object(@key::text, @value::text),
		    updated_at = now()
		WHERE id = @id`

	const clear = `
		UPDATE attendees
		SET responses  = responses - @key::text,
		    updated_at = now()
		WHERE id = @id`

	q := set
	args := pgx.NamedArgs{"id": attendeeID, "key": domain.Key(index), "value": string(v)}
	if v == domain.Empty {
		q = clear
		delete(args, "value")
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.PollRepo.SetResponse: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PollRepo.SetResponse: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan helpers
// to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanPoll maps a polls row into a domain.Poll without attendees.
func scanPoll(s scanner) (domain.Poll, error) {
	var (
		p           domain.Poll
		id          pgtype.UUID
		rawWeekends []byte
	)
	err := s.Scan(&id, &p.Title, &p.HostName, &rawWeekends, &p.AdminToken, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Poll{}, domain.ErrNotFound
		}
		return domain.Poll{}, err
	}
	p.ID = uuid.UUID(id.Bytes)
	if err := json.Unmarshal(rawWeekends, &p.Weekends); err != nil {
		return domain.Poll{}, fmt.Errorf("decode weekends: %w", err)
	}
	return p, nil
}

// scanAttendee maps an attendees row into a domain.Attendee.
func scanAttendee(s scanner) (domain.Attendee, error) {
	var (
		a          domain.Attendee
		id, pollID pgtype.UUID
		raw        []byte
	)
	if err := s.Scan(&id, &pollID, &a.Name, &a.Token, &raw); err != nil {
		return domain.Attendee{}, err
	}
	a.ID = uuid.UUID(id.Bytes)
	a.PollID = uuid.UUID(pollID.Bytes)
	resp, err := decodeResponses(raw)
	if err != nil {
		return domain.Attendee{}, err
	}
	a.Responses = resp
	return a, nil
}

// decodeResponses parses the responses JSONB object. Entries whose value is
// not a known response are dropped rather than failing the whole read.
func decodeResponses(raw []byte) (domain.Responses, error) {
	var m map[int]string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode responses: %w", err)
		}
	}
	out := make(domain.Responses, len(m))
	for k, v := range m {
		if rv := domain.ResponseValue(v); rv.Valid() {
			out[k] = rv
		}
	}
	return out, nil
}
