package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrProposalNotFound is returned when a confirmation token is unknown or
// has expired.
var ErrProposalNotFound = errors.New("booking proposal not found or expired")

// proposal is a parked booking awaiting the caller's confirm/abandon
// decision. It holds no schedule state: until confirmed, nothing is
// committed, so abandoning is a pure no-op on the schedule.
type proposal struct {
	id        uuid.UUID
	req       BookingRequest
	conflicts *ConflictReport
	expiresAt time.Time
}

// proposalStore holds pending-confirmation bookings with a TTL, so
// proposals the user walks away from do not accumulate.
type proposalStore struct {
	mu        sync.Mutex
	proposals map[uuid.UUID]*proposal
	ttl       time.Duration
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		proposals: make(map[uuid.UUID]*proposal),
		ttl:       ttl,
	}
}

// put parks a proposal and returns its token and expiry.
func (s *proposalStore) put(req BookingRequest, conflicts *ConflictReport) (uuid.UUID, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &proposal{
		id:        uuid.New(),
		req:       req,
		conflicts: conflicts,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.proposals[p.id] = p
	return p.id, p.expiresAt
}

// take removes and returns the proposal, treating expired entries as
// absent.
func (s *proposalStore) take(id uuid.UUID) (*proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, false
	}
	delete(s.proposals, id)
	if time.Now().After(p.expiresAt) {
		return nil, false
	}
	return p, true
}

// discard drops the proposal if present. Stale tokens are ignored: an
// abandoned booking never mutates anything, so discarding twice is safe.
func (s *proposalStore) discard(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.proposals, id)
}

// sweep removes expired proposals and reports how many were dropped.
func (s *proposalStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, p := range s.proposals {
		if now.After(p.expiresAt) {
			delete(s.proposals, id)
			n++
		}
	}
	return n
}

// StartCleanup periodically sweeps expired proposals until ctx is done.
func (s *Service) StartCleanup(ctx context.Context) {
	interval := s.proposals.ttl
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.proposals.sweep(now)
		}
	}
}
