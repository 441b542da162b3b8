package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
)

// DateLayout is the calendar-day format used throughout the schedule; dates
// carry no time component and appointments on different dates never interact.
const DateLayout = "2006-01-02"

// Appointment is one scheduled visit. StartTime and EndTime are slot labels
// from the day grid; [StartTime, EndTime) is half-open, so back-to-back
// bookings do not overlap.
type Appointment struct {
	ID           uuid.UUID `json:"id"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	PatientName  string    `json:"patient_name"`
	PatientPhone string    `json:"patient_phone,omitempty"`
	PatientEmail string    `json:"patient_email,omitempty"`
	Treatment    string    `json:"treatment,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Status       string    `json:"status"`
	Color        string    `json:"color,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BookingRequest is the caller-supplied payload for a new appointment.
type BookingRequest struct {
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
	Treatment    string `json:"treatment,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Status       string `json:"status,omitempty"`
	Color        string `json:"color,omitempty"`
}

func (r BookingRequest) toAppointment() *Appointment {
	status := r.Status
	if status == "" {
		status = StatusConfirmed
	}
	return &Appointment{
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		PatientName:  r.PatientName,
		PatientPhone: r.PatientPhone,
		PatientEmail: r.PatientEmail,
		Treatment:    r.Treatment,
		Provider:     r.Provider,
		Notes:        r.Notes,
		Status:       status,
		Color:        r.Color,
	}
}

// Conflict report tags.
const (
	TagNoConflict      = "no_conflict"
	TagSameDayConflict = "same_day_conflict"
)

// ConflictReport is the two-tier outcome of checking a proposed interval.
// Any existing appointment on the date raises TagSameDayConflict — a soft
// warning gated on user confirmation, never a hard rejection. Overlapping
// holds the true half-open interval overlaps for display; NonOverlapping
// the remaining same-day bookings. Both are ordered by start time.
type ConflictReport struct {
	Tag            string         `json:"tag"`
	Overlapping    []*Appointment `json:"overlapping,omitempty"`
	NonOverlapping []*Appointment `json:"non_overlapping,omitempty"`
}

// SameDay reports whether the proposal needs explicit confirmation.
func (r *ConflictReport) SameDay() bool { return r.Tag == TagSameDayConflict }

// Booking decision states. A proposed booking reaches exactly one terminal
// state: committed (directly via auto-accept, or after confirmation) or
// abandoned.
const (
	StateAutoAccepted        = "auto_accepted"
	StatePendingConfirmation = "pending_confirmation"
)

// BookingDecision is the result of proposing a booking. When State is
// StateAutoAccepted the appointment is already committed; when it is
// StatePendingConfirmation the caller must confirm or abandon the proposal
// identified by ProposalID after reviewing Conflicts.
type BookingDecision struct {
	State       string          `json:"state"`
	Appointment *Appointment    `json:"appointment,omitempty"`
	ProposalID  uuid.UUID       `json:"proposal_id,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at,omitempty"`
	Conflicts   *ConflictReport `json:"conflicts,omitempty"`
}

// SlotRow is one row of a rendered day view: either an empty bookable slot
// or part of an appointment block. IsStart marks the block's first slot and
// SpanSlots its height in slots; presentation sizes blocks from these.
type SlotRow struct {
	Label       string       `json:"label"`
	Occupied    bool         `json:"occupied"`
	Appointment *Appointment `json:"appointment,omitempty"`
	IsStart     bool         `json:"is_start,omitempty"`
	SpanSlots   int          `json:"span_slots,omitempty"`
}
