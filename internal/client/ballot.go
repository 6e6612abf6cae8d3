package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// Submitter sends one response change to the server. *Client implements it.
type Submitter interface {
	SubmitResponse(ctx context.Context, token string, index int, v domain.ResponseValue) error
}

var _ Submitter = (*Client)(nil)

// Ballot is one attendee's responses as shown to that attendee. Changes are
// applied locally before the server confirms them; when the server rejects a
// change the weekend goes back to the last value the server accepted, which
// may be "no entry".
//
// A Ballot is safe for concurrent use. When several changes to the same
// weekend are in flight, only the newest one may roll the display back.
type Ballot struct {
	mu        sync.Mutex
	submit    Submitter
	token     string
	weekends  int
	committed domain.Responses
	shown     domain.Responses
	gen       map[int]uint64 // newest change started, per index
	doneGen   map[int]uint64 // newest change accepted, per index
	failGen   map[int]uint64 // newest change rejected, per index
	inFlight  int
}

// NewBallot starts a Ballot from the attendee's stored responses. initial is
// copied; the caller keeps ownership.
func NewBallot(s Submitter, token string, weekendCount int, initial domain.Responses) *Ballot {
	return &Ballot{
		submit:    s,
		token:     token,
		weekends:  weekendCount,
		committed: initial.Clone(),
		shown:     initial.Clone(),
		gen:       make(map[int]uint64),
		doneGen:   make(map[int]uint64),
		failGen:   make(map[int]uint64),
	}
}

// Value is what the attendee currently sees for index.
func (b *Ballot) Value(index int) domain.ResponseValue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shown.Get(index)
}

// Responses returns a copy of everything the attendee currently sees.
func (b *Ballot) Responses() domain.Responses {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shown.Clone()
}

// Saving reports whether any change is waiting for the server.
func (b *Ballot) Saving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight > 0
}

// Cycle advances index one step along Empty -> Yes -> Maybe -> No -> Empty
// and submits the result. It returns the value it tried to store. The step is
// taken from what is shown, so concurrent calls each advance one step.
func (b *Ballot) Cycle(ctx context.Context, index int) (domain.ResponseValue, error) {
	if err := b.checkIndex(index); err != nil {
		return domain.Empty, fmt.Errorf("client.Ballot.Cycle: %w", err)
	}

	b.mu.Lock()
	next := b.shown.Get(index).Next()
	gen := b.beginLocked(index, next)
	b.mu.Unlock()

	if err := b.finish(ctx, index, next, gen); err != nil {
		return next, fmt.Errorf("client.Ballot.Cycle: %w", err)
	}
	return next, nil
}

// Set shows v for index at once and submits it. On failure the display is
// restored to the last committed value and the error is returned.
func (b *Ballot) Set(ctx context.Context, index int, v domain.ResponseValue) error {
	if err := b.checkIndex(index); err != nil {
		return fmt.Errorf("client.Ballot.Set: %w", err)
	}
	if v != domain.Empty && !v.Valid() {
		return fmt.Errorf("client.Ballot.Set: %w: unknown value %q", domain.ErrValidation, v)
	}

	b.mu.Lock()
	gen := b.beginLocked(index, v)
	b.mu.Unlock()

	if err := b.finish(ctx, index, v, gen); err != nil {
		return fmt.Errorf("client.Ballot.Set: %w", err)
	}
	return nil
}

func (b *Ballot) checkIndex(index int) error {
	if index < 0 || index >= b.weekends {
		return fmt.Errorf("index %d of %d: %w", index, b.weekends, domain.ErrOutOfRange)
	}
	return nil
}

// beginLocked shows v for index and returns the generation of this change.
// Callers hold b.mu.
func (b *Ballot) beginLocked(index int, v domain.ResponseValue) uint64 {
	b.gen[index]++
	b.shown.Apply(index, v)
	b.inFlight++
	return b.gen[index]
}

// finish submits change gen and records the outcome.
func (b *Ballot) finish(ctx context.Context, index int, v domain.ResponseValue, gen uint64) error {
	err := b.submit.SubmitResponse(ctx, b.token, index, v)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--
	if err != nil {
		b.failGen[index] = max(b.failGen[index], gen)
		b.settle(index)
		return err
	}
	if gen > b.doneGen[index] {
		b.doneGen[index] = gen
		b.committed.Apply(index, v)
	}
	b.settle(index)
	return nil
}

// settle shows the committed value for index once the newest change to it
// has been rejected. Callers hold b.mu.
func (b *Ballot) settle(index int) {
	if b.failGen[index] == b.gen[index] {
		b.shown.Apply(index, b.committed.Get(index))
	}
}
