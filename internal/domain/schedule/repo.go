package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAppointmentNotFound is returned by repository lookups for unknown ids.
var ErrAppointmentNotFound = errors.New("appointment not found")

// AppointmentRepository owns the appointment collection. Implementations
// must return defensive copies so the collection is only ever mutated
// through Create, Update and Delete.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDate(ctx context.Context, date string) ([]*Appointment, error)
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
}
