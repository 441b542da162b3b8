package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-memory AppointmentRepository: an id-indexed
// map with a secondary per-date index, so lookups and moves are O(1) by id
// and day queries touch only that day's bucket.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Appointment
	byDate map[string]map[uuid.UUID]*Appointment
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]*Appointment),
		byDate: make(map[string]map[uuid.UUID]*Appointment),
	}
}

// Create stores a copy of the appointment, assigning a fresh id and
// timestamps. The assigned id is written back onto the argument.
func (r *MemoryRepository) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = uuid.New()
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	stored := *a
	r.byID[stored.ID] = &stored
	bucket, ok := r.byDate[stored.Date]
	if !ok {
		bucket = make(map[uuid.UUID]*Appointment)
		r.byDate[stored.Date] = bucket
	}
	bucket[stored.ID] = &stored
	return nil
}

// GetByID returns a copy of the appointment, or ErrAppointmentNotFound.
func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

// Update replaces the stored appointment, re-indexing if the date changed.
func (r *MemoryRepository) Update(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[a.ID]
	if !ok {
		return ErrAppointmentNotFound
	}

	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = time.Now()

	stored := *a
	r.byID[stored.ID] = &stored
	if old.Date != stored.Date {
		delete(r.byDate[old.Date], stored.ID)
		if len(r.byDate[old.Date]) == 0 {
			delete(r.byDate, old.Date)
		}
	}
	bucket, ok := r.byDate[stored.Date]
	if !ok {
		bucket = make(map[uuid.UUID]*Appointment)
		r.byDate[stored.Date] = bucket
	}
	bucket[stored.ID] = &stored
	return nil
}

// Delete removes the appointment, or returns ErrAppointmentNotFound.
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	delete(r.byID, id)
	delete(r.byDate[a.Date], id)
	if len(r.byDate[a.Date]) == 0 {
		delete(r.byDate, a.Date)
	}
	return nil
}

// ListByDate returns copies of the date's appointments ordered by start
// time ascending.
func (r *MemoryRepository) ListByDate(_ context.Context, date string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.byDate[date]
	out := make([]*Appointment, 0, len(bucket))
	for _, a := range bucket {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// List returns a page of all appointments ordered by date then start time,
// plus the total count.
func (r *MemoryRepository) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Appointment, 0, len(r.byID))
	for _, a := range r.byID {
		c := *a
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date < all[j].Date
		}
		if all[i].StartTime != all[j].StartTime {
			return all[i].StartTime < all[j].StartTime
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}
