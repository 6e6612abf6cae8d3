package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/weekend-poll/internal/domain"
)

// tokenRef locates an attendee inside the memory store.
type tokenRef struct {
	pollID uuid.UUID
	pos    int
}

// MemoryPollRepo is an in-process PollRepo for local development and tests.
// Every read returns a deep copy, so callers can never alias stored state.
type MemoryPollRepo struct {
	mu     sync.Mutex
	polls  map[uuid.UUID]*domain.Poll
	tokens map[string]tokenRef
	byID   map[uuid.UUID]tokenRef
	admins map[string]uuid.UUID
	now    func() time.Time
}

// NewMemoryPollRepo returns an empty store.
func NewMemoryPollRepo() *MemoryPollRepo {
	return &MemoryPollRepo{
		polls:  make(map[uuid.UUID]*domain.Poll),
		tokens: make(map[string]tokenRef),
		byID:   make(map[uuid.UUID]tokenRef),
		admins: make(map[string]uuid.UUID),
		now:    time.Now,
	}
}

var _ PollRepo = (*MemoryPollRepo)(nil)

// Create stores the poll and its attendees. Token uniqueness is checked for
// the whole batch before anything is written.
func (r *MemoryPollRepo) Create(_ context.Context, p domain.NewPoll) (domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens, err := batchTokens(p)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("repo.MemoryPollRepo.Create: %w", err)
	}
	for _, t := range tokens {
		_, isAttendee := r.tokens[t]
		_, isAdmin := r.admins[t]
		if isAttendee || isAdmin {
			return domain.Poll{}, fmt.Errorf("repo.MemoryPollRepo.Create: %w", ErrDuplicateToken)
		}
	}

	poll := &domain.Poll{
		ID:         uuid.New(),
		Title:      p.Title,
		HostName:   p.HostName,
		Weekends:   append([]domain.Weekend(nil), p.Weekends...),
		AdminToken: p.AdminToken,
		Attendees:  make([]domain.Attendee, len(p.Attendees)),
		CreatedAt:  r.now().UTC(),
	}
	for i, a := range p.Attendees {
		poll.Attendees[i] = domain.Attendee{
			ID:        uuid.New(),
			PollID:    poll.ID,
			Name:      a.Name,
			Token:     a.Token,
			Responses: domain.Responses{},
		}
		ref := tokenRef{pollID: poll.ID, pos: i}
		r.tokens[a.Token] = ref
		r.byID[poll.Attendees[i].ID] = ref
	}
	r.admins[p.AdminToken] = poll.ID
	r.polls[poll.ID] = poll

	return clonePoll(poll), nil
}

// GetByID returns a copy of the stored poll.
func (r *MemoryPollRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.polls[id]
	if !ok {
		return domain.Poll{}, fmt.Errorf("repo.MemoryPollRepo.GetByID: %w", domain.ErrNotFound)
	}
	return clonePoll(p), nil
}

// FindByToken resolves an attendee token. Admin tokens are not attendee
// tokens and resolve to domain.ErrNotFound.
func (r *MemoryPollRepo) FindByToken(_ context.Context, token string) (domain.AttendeeAccess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.tokens[token]
	if !ok {
		return domain.AttendeeAccess{}, fmt.Errorf("repo.MemoryPollRepo.FindByToken: %w", domain.ErrNotFound)
	}
	p := r.polls[ref.pollID]
	return domain.AttendeeAccess{
		Attendee: cloneAttendee(p.Attendees[ref.pos]),
		Weekends: append([]domain.Weekend(nil), p.Weekends...),
	}, nil
}

// SetResponse updates one key of one attendee under the store lock.
func (r *MemoryPollRepo) SetResponse(_ context.Context, attendeeID uuid.UUID, index int, v domain.ResponseValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.byID[attendeeID]
	if !ok {
		return fmt.Errorf("repo.MemoryPollRepo.SetResponse: %w", domain.ErrNotFound)
	}
	r.polls[ref.pollID].Attendees[ref.pos].Responses.Apply(index, v)
	return nil
}

func attendeeTokens(as []domain.NewAttendee) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Token
	}
	return out
}

func clonePoll(p *domain.Poll) domain.Poll {
	out := *p
	out.Weekends = append([]domain.Weekend(nil), p.Weekends...)
	out.Attendees = make([]domain.Attendee, len(p.Attendees))
	for i, a := range p.Attendees {
		out.Attendees[i] = cloneAttendee(a)
	}
	return out
}

func cloneAttendee(a domain.Attendee) domain.Attendee {
	a.Responses = a.Responses.Clone()
	return a
}
