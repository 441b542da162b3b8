package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/slotgrid"
)

// Service is the schedule manager for a clinic. It owns the appointment
// collection through its repository, uses the day grid for all position
// arithmetic, and gates double bookings behind an explicit confirmation
// protocol. It never rejects a booking outright — the human makes the
// final call.
type Service struct {
	grid      *slotgrid.Grid
	repo      AppointmentRepository
	proposals *proposalStore
}

// NewService creates a schedule manager. proposalTTL bounds how long a
// pending double-booking confirmation stays redeemable.
func NewService(grid *slotgrid.Grid, repo AppointmentRepository, proposalTTL time.Duration) *Service {
	return &Service{
		grid:      grid,
		repo:      repo,
		proposals: newProposalStore(proposalTTL),
	}
}

// Grid returns the day's slot catalog.
func (s *Service) Grid() *slotgrid.Grid { return s.grid }

// spanOf resolves an appointment's stored labels to slot indices. False
// means the record carries labels outside the catalog; callers treat such
// records as occupying nothing rather than failing.
func (s *Service) spanOf(a *Appointment) (si, ei int, ok bool) {
	si, ok = s.grid.IndexOf(a.StartTime)
	if !ok {
		return 0, 0, false
	}
	ei, ok = s.grid.EndIndexOf(a.EndTime)
	if !ok || ei <= si {
		return 0, 0, false
	}
	return si, ei, true
}

// IsOccupied reports whether some appointment on date covers the slot.
// A label that is not a slot boundary is never occupied.
func (s *Service) IsOccupied(ctx context.Context, date, label string) (bool, error) {
	a, err := s.OccupantAt(ctx, date, label)
	return a != nil, err
}

// OccupantAt returns the appointment covering the slot, or nil when the
// slot is free. The end slot of an appointment is free: intervals are
// half-open, so back-to-back bookings are allowed.
func (s *Service) OccupantAt(ctx context.Context, date, label string) (*Appointment, error) {
	idx, ok := s.grid.IndexOf(label)
	if !ok {
		return nil, nil
	}
	appts, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	for _, a := range appts {
		si, ei, ok := s.spanOf(a)
		if ok && si <= idx && idx < ei {
			return a, nil
		}
	}
	return nil, nil
}

// FindConflicts returns the appointments on date whose intervals truly
// overlap [start, end), ordered by start time ascending.
func (s *Service) FindConflicts(ctx context.Context, date, start, end string) ([]*Appointment, error) {
	si, ei, err := s.grid.Span(start, end)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	var conflicts []*Appointment
	for _, a := range appts {
		asi, aei, ok := s.spanOf(a)
		if ok && si < aei && asi < ei {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts, nil
}

// CheckBooking classifies a proposed interval against the date's existing
// bookings. Any same-day appointment — overlapping or not — yields
// TagSameDayConflict: the system has no provider capacity model, so it
// cannot tell tight-but-valid scheduling from a genuine double booking and
// defers that judgment to the user.
func (s *Service) CheckBooking(ctx context.Context, date, start, end string) (*ConflictReport, error) {
	si, ei, err := s.grid.Span(start, end)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return &ConflictReport{Tag: TagNoConflict}, nil
	}
	report := &ConflictReport{Tag: TagSameDayConflict}
	for _, a := range appts {
		asi, aei, ok := s.spanOf(a)
		if ok && si < aei && asi < ei {
			report.Overlapping = append(report.Overlapping, a)
		} else {
			report.NonOverlapping = append(report.NonOverlapping, a)
		}
	}
	return report, nil
}

// ProposeBooking runs the booking protocol for a candidate appointment.
// On an empty day the booking commits immediately; otherwise it is parked
// and the caller must confirm or abandon it after reviewing the report.
func (s *Service) ProposeBooking(ctx context.Context, req BookingRequest) (*BookingDecision, error) {
	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", req.Date, err)
	}
	report, err := s.CheckBooking(ctx, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if !report.SameDay() {
		appt := req.toAppointment()
		if err := s.repo.Create(ctx, appt); err != nil {
			return nil, err
		}
		return &BookingDecision{State: StateAutoAccepted, Appointment: appt}, nil
	}

	id, expires := s.proposals.put(req, report)
	return &BookingDecision{
		State:      StatePendingConfirmation,
		ProposalID: id,
		ExpiresAt:  expires,
		Conflicts:  report,
	}, nil
}

// ConfirmBooking commits a parked proposal. The token is consumed either
// way, so a proposal commits at most once.
func (s *Service) ConfirmBooking(ctx context.Context, proposalID uuid.UUID) (*Appointment, error) {
	p, ok := s.proposals.take(proposalID)
	if !ok {
		return nil, ErrProposalNotFound
	}
	appt := p.req.toAppointment()
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// AbandonBooking discards a parked proposal. Nothing was committed, so
// the schedule is untouched; a stale or already-consumed token is a no-op.
func (s *Service) AbandonBooking(_ context.Context, proposalID uuid.UUID) {
	s.proposals.discard(proposalID)
}

// Move relocates an appointment to a new start time, preserving its
// duration. An unknown id is a no-op returning (nil, nil) — a stale drag
// reference must not fail. The target start is snapped to the nearest
// slot and clamped so the whole interval stays on the grid; no conflict
// re-check is performed on move. Only the two time fields change.
func (s *Service) Move(ctx context.Context, id uuid.UUID, newStart string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrAppointmentNotFound {
			return nil, nil
		}
		return nil, err
	}

	si, ei, ok := s.spanOf(a)
	if !ok {
		return nil, nil
	}
	duration := ei - si

	newSi := s.grid.NearestIndex(newStart)
	if newSi > s.grid.Len()-duration {
		newSi = s.grid.Len() - duration
	}
	newEi := newSi + duration

	a.StartTime, _ = s.grid.LabelAt(newSi)
	if newEi == s.grid.Len() {
		a.EndTime = s.grid.Close()
	} else {
		a.EndTime, _ = s.grid.LabelAt(newEi)
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAppointment replaces an existing appointment wholesale after
// re-validating its interval against the grid.
func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", a.Date, err)
	}
	if _, _, err := s.grid.Span(a.StartTime, a.EndTime); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// CancelAppointment removes an appointment from the schedule.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// GetAppointment fetches one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByDate returns the date's appointments ordered by start time.
func (s *Service) ListByDate(ctx context.Context, date string) ([]*Appointment, error) {
	return s.repo.ListByDate(ctx, date)
}

// ListAppointments returns a page over all appointments plus the total.
func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// DayView renders one row per grid slot for the date: empty rows are
// bookable, occupied rows reference the owning appointment, and the
// block's first row carries IsStart plus its height in slots.
func (s *Service) DayView(ctx context.Context, date string) ([]SlotRow, error) {
	appts, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	rows := make([]SlotRow, s.grid.Len())
	for i := range rows {
		label, _ := s.grid.LabelAt(i)
		rows[i] = SlotRow{Label: label}
	}
	for _, a := range appts {
		si, ei, ok := s.spanOf(a)
		if !ok {
			continue
		}
		for i := si; i < ei; i++ {
			if rows[i].Occupied {
				continue
			}
			rows[i].Occupied = true
			rows[i].Appointment = a
			if i == si {
				rows[i].IsStart = true
				rows[i].SpanSlots = ei - si
			}
		}
	}
	return rows, nil
}
