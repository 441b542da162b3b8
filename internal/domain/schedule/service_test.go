package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/slotgrid"
)

// ---------- Helpers ----------

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestServiceTTL(t, 5*time.Minute)
}

func newTestServiceTTL(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	g, err := slotgrid.New("08:00", "18:00", 30)
	if err != nil {
		t.Fatalf("failed to build grid: %v", err)
	}
	return NewService(g, NewMemoryRepository(), ttl)
}

func mustBook(t *testing.T, s *Service, date, start, end, patient string) *Appointment {
	t.Helper()
	a := &Appointment{
		Date: date, StartTime: start, EndTime: end,
		PatientName: patient, Status: StatusConfirmed,
	}
	if err := s.repo.Create(context.Background(), a); err != nil {
		t.Fatalf("failed to seed appointment: %v", err)
	}
	return a
}

func countOnDate(t *testing.T, s *Service, date string) int {
	t.Helper()
	appts, err := s.ListByDate(context.Background(), date)
	if err != nil {
		t.Fatalf("ListByDate failed: %v", err)
	}
	return len(appts)
}

// ---------- Occupancy ----------

func TestOccupantAt_HalfOpenInterval(t *testing.T) {
	s := newTestService(t)
	appt := mustBook(t, s, "2025-11-16", "10:00", "11:00", "Sarah Johnson")

	tests := []struct {
		label    string
		occupied bool
	}{
		{"09:30", false},
		{"10:00", true},  // start slot is occupied
		{"10:30", true},  // interior slot
		{"11:00", false}, // end slot is free: back-to-back bookings allowed
		{"11:30", false},
	}
	for _, tt := range tests {
		got, err := s.IsOccupied(context.Background(), "2025-11-16", tt.label)
		if err != nil {
			t.Fatalf("IsOccupied(%s) failed: %v", tt.label, err)
		}
		if got != tt.occupied {
			t.Errorf("IsOccupied(%s) = %v, want %v", tt.label, got, tt.occupied)
		}
	}

	occ, err := s.OccupantAt(context.Background(), "2025-11-16", "10:30")
	if err != nil {
		t.Fatalf("OccupantAt failed: %v", err)
	}
	if occ == nil || occ.ID != appt.ID {
		t.Errorf("expected occupant %s, got %+v", appt.ID, occ)
	}
}

func TestOccupantAt_UnknownLabelNeverOccupied(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "11:00", "Sarah Johnson")

	for _, label := range []string{"10:17", "03:00", "25:00", ""} {
		occupied, err := s.IsOccupied(context.Background(), "2025-11-16", label)
		if err != nil {
			t.Fatalf("IsOccupied(%q) failed: %v", label, err)
		}
		if occupied {
			t.Errorf("IsOccupied(%q) = true, want false for a label off the grid", label)
		}
	}
}

func TestOccupancy_ScopedToDate(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "11:00", "Sarah Johnson")

	occupied, err := s.IsOccupied(context.Background(), "2025-11-17", "10:00")
	if err != nil {
		t.Fatalf("IsOccupied failed: %v", err)
	}
	if occupied {
		t.Error("appointment on 2025-11-16 must not occupy slots on 2025-11-17")
	}
}

// ---------- Conflict detection ----------

func TestFindConflicts_HalfOpenOverlap(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	tests := []struct {
		name       string
		start, end string
		conflicts  int
	}{
		{"back-to-back after", "10:30", "11:00", 0},
		{"back-to-back before", "09:30", "10:00", 0},
		{"identical interval", "10:00", "10:30", 1},
		{"containing interval", "09:30", "11:00", 1},
		{"disjoint", "14:00", "15:30", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindConflicts(context.Background(), "2025-11-16", tt.start, tt.end)
			if err != nil {
				t.Fatalf("FindConflicts failed: %v", err)
			}
			if len(got) != tt.conflicts {
				t.Errorf("FindConflicts(%s-%s) = %d conflicts, want %d", tt.start, tt.end, len(got), tt.conflicts)
			}
		})
	}
}

func TestFindConflicts_PartialOverlapOnFinerGrid(t *testing.T) {
	// 15-minute slots: existing 10:00-10:30, proposing 10:15-10:45 overlaps.
	g, err := slotgrid.New("08:00", "18:00", 15)
	if err != nil {
		t.Fatalf("failed to build grid: %v", err)
	}
	s := NewService(g, NewMemoryRepository(), time.Minute)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	got, err := s.FindConflicts(context.Background(), "2025-11-16", "10:15", "10:45")
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 conflict for 10:15-10:45, got %d", len(got))
	}
}

func TestFindConflicts_OrderedByStart(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "15:00", "16:00", "Carol")
	mustBook(t, s, "2025-11-16", "09:00", "10:00", "Alice")
	mustBook(t, s, "2025-11-16", "12:00", "13:00", "Bob")

	got, err := s.FindConflicts(context.Background(), "2025-11-16", "08:00", "18:00")
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 conflicts, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].StartTime < got[i-1].StartTime {
			t.Errorf("conflicts not ordered by start time: %s before %s", got[i-1].StartTime, got[i].StartTime)
		}
	}
}

func TestFindConflicts_InvalidInterval(t *testing.T) {
	s := newTestService(t)

	if _, err := s.FindConflicts(context.Background(), "2025-11-16", "11:00", "10:00"); err == nil {
		t.Error("expected error for inverted interval")
	}
	if _, err := s.FindConflicts(context.Background(), "2025-11-16", "10:10", "11:00"); err == nil {
		t.Error("expected error for off-grid start label")
	}
}

func TestCheckBooking_EmptyDay(t *testing.T) {
	s := newTestService(t)

	report, err := s.CheckBooking(context.Background(), "2025-11-16", "10:00", "10:30")
	if err != nil {
		t.Fatalf("CheckBooking failed: %v", err)
	}
	if report.Tag != TagNoConflict {
		t.Errorf("expected %s on an empty day, got %s", TagNoConflict, report.Tag)
	}
}

func TestCheckBooking_SameDayWithoutOverlap(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	// Disjoint interval on the same day still warrants a warning: the
	// system cannot tell two providers apart from one double-booked.
	report, err := s.CheckBooking(context.Background(), "2025-11-16", "14:00", "15:30")
	if err != nil {
		t.Fatalf("CheckBooking failed: %v", err)
	}
	if report.Tag != TagSameDayConflict {
		t.Errorf("expected %s, got %s", TagSameDayConflict, report.Tag)
	}
	if len(report.Overlapping) != 0 {
		t.Errorf("expected no true overlaps, got %d", len(report.Overlapping))
	}
	if len(report.NonOverlapping) != 1 {
		t.Errorf("expected 1 non-overlapping same-day booking, got %d", len(report.NonOverlapping))
	}
}

func TestCheckBooking_SplitsOverlapSets(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "09:00", "10:00", "Alice")
	mustBook(t, s, "2025-11-16", "10:00", "11:00", "Bob")
	mustBook(t, s, "2025-11-16", "16:00", "17:00", "Carol")

	report, err := s.CheckBooking(context.Background(), "2025-11-16", "10:30", "12:00")
	if err != nil {
		t.Fatalf("CheckBooking failed: %v", err)
	}
	if report.Tag != TagSameDayConflict {
		t.Fatalf("expected %s, got %s", TagSameDayConflict, report.Tag)
	}
	if len(report.Overlapping) != 1 || report.Overlapping[0].PatientName != "Bob" {
		t.Errorf("expected only Bob in the overlap set, got %+v", report.Overlapping)
	}
	if len(report.NonOverlapping) != 2 {
		t.Errorf("expected 2 non-overlapping bookings, got %d", len(report.NonOverlapping))
	}
}

// ---------- Booking protocol ----------

func TestProposeBooking_AutoAcceptsOnEmptyDay(t *testing.T) {
	s := newTestService(t)

	decision, err := s.ProposeBooking(context.Background(), BookingRequest{
		Date: "2025-11-16", StartTime: "10:00", EndTime: "10:30",
		PatientName: "Sarah Johnson", PatientPhone: "555-0134", Treatment: "Cleaning",
	})
	if err != nil {
		t.Fatalf("ProposeBooking failed: %v", err)
	}
	if decision.State != StateAutoAccepted {
		t.Fatalf("expected %s, got %s", StateAutoAccepted, decision.State)
	}
	if decision.Appointment == nil || decision.Appointment.ID == uuid.Nil {
		t.Fatal("expected a committed appointment with an assigned id")
	}
	if decision.Appointment.Status != StatusConfirmed {
		t.Errorf("expected default status %s, got %s", StatusConfirmed, decision.Appointment.Status)
	}
	if n := countOnDate(t, s, "2025-11-16"); n != 1 {
		t.Errorf("expected exactly 1 appointment after auto-accept, got %d", n)
	}
}

func TestProposeBooking_PendingOnSameDay(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	// Non-overlapping but same day: still gated on confirmation.
	decision, err := s.ProposeBooking(context.Background(), BookingRequest{
		Date: "2025-11-16", StartTime: "14:00", EndTime: "15:30", PatientName: "Marcus Webb",
	})
	if err != nil {
		t.Fatalf("ProposeBooking failed: %v", err)
	}
	if decision.State != StatePendingConfirmation {
		t.Fatalf("expected %s, got %s", StatePendingConfirmation, decision.State)
	}
	if decision.ProposalID == uuid.Nil {
		t.Error("expected a proposal token")
	}
	if decision.Conflicts == nil || !decision.Conflicts.SameDay() {
		t.Error("expected a same-day conflict report")
	}
	if n := countOnDate(t, s, "2025-11-16"); n != 1 {
		t.Errorf("pending proposal must not mutate the schedule; got %d appointments", n)
	}
}

func TestConfirmBooking_CommitsExactlyOnce(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	decision, err := s.ProposeBooking(context.Background(), BookingRequest{
		Date: "2025-11-16", StartTime: "14:00", EndTime: "15:30", PatientName: "Marcus Webb",
	})
	if err != nil {
		t.Fatalf("ProposeBooking failed: %v", err)
	}

	appt, err := s.ConfirmBooking(context.Background(), decision.ProposalID)
	if err != nil {
		t.Fatalf("ConfirmBooking failed: %v", err)
	}
	if appt.PatientName != "Marcus Webb" || appt.StartTime != "14:00" || appt.EndTime != "15:30" {
		t.Errorf("committed appointment does not match the proposal: %+v", appt)
	}
	if n := countOnDate(t, s, "2025-11-16"); n != 2 {
		t.Fatalf("expected 2 appointments after confirmation, got %d", n)
	}

	// Token is consumed: a duplicate confirm must not commit again.
	if _, err := s.ConfirmBooking(context.Background(), decision.ProposalID); err != ErrProposalNotFound {
		t.Errorf("expected ErrProposalNotFound on duplicate confirm, got %v", err)
	}
	if n := countOnDate(t, s, "2025-11-16"); n != 2 {
		t.Errorf("duplicate confirm must not add a record; got %d appointments", n)
	}
}

func TestAbandonBooking_NoMutation(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	decision, err := s.ProposeBooking(context.Background(), BookingRequest{
		Date: "2025-11-16", StartTime: "11:00", EndTime: "11:30", PatientName: "Marcus Webb",
	})
	if err != nil {
		t.Fatalf("ProposeBooking failed: %v", err)
	}

	s.AbandonBooking(context.Background(), decision.ProposalID)
	if n := countOnDate(t, s, "2025-11-16"); n != 1 {
		t.Errorf("abandon must not mutate the schedule; got %d appointments", n)
	}
	if _, err := s.ConfirmBooking(context.Background(), decision.ProposalID); err != ErrProposalNotFound {
		t.Errorf("expected ErrProposalNotFound after abandon, got %v", err)
	}

	// Abandoning again (stale token) is a harmless no-op.
	s.AbandonBooking(context.Background(), decision.ProposalID)
}

func TestConfirmBooking_ExpiredProposal(t *testing.T) {
	s := newTestServiceTTL(t, -time.Second)
	mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")

	decision, err := s.ProposeBooking(context.Background(), BookingRequest{
		Date: "2025-11-16", StartTime: "11:00", EndTime: "11:30", PatientName: "Marcus Webb",
	})
	if err != nil {
		t.Fatalf("ProposeBooking failed: %v", err)
	}
	if _, err := s.ConfirmBooking(context.Background(), decision.ProposalID); err != ErrProposalNotFound {
		t.Errorf("expected ErrProposalNotFound for expired proposal, got %v", err)
	}
	if n := countOnDate(t, s, "2025-11-16"); n != 1 {
		t.Errorf("expired proposal must not commit; got %d appointments", n)
	}
}

func TestProposeBooking_InvalidPayload(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name string
		req  BookingRequest
	}{
		{"bad date", BookingRequest{Date: "16/11/2025", StartTime: "10:00", EndTime: "10:30", PatientName: "X"}},
		{"off-grid start", BookingRequest{Date: "2025-11-16", StartTime: "10:10", EndTime: "10:30", PatientName: "X"}},
		{"inverted interval", BookingRequest{Date: "2025-11-16", StartTime: "11:00", EndTime: "10:00", PatientName: "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ProposeBooking(context.Background(), tt.req); err == nil {
				t.Error("expected error")
			}
		})
	}
	if n := countOnDate(t, s, "2025-11-16"); n != 0 {
		t.Errorf("invalid proposals must not commit; got %d appointments", n)
	}
}

// ---------- Move ----------

func TestMove_PreservesDuration(t *testing.T) {
	s := newTestService(t)
	appt := mustBook(t, s, "2025-11-16", "10:00", "11:30", "Sarah Johnson")

	moved, err := s.Move(context.Background(), appt.ID, "14:00")
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.StartTime != "14:00" || moved.EndTime != "15:30" {
		t.Errorf("expected 14:00-15:30 after move, got %s-%s", moved.StartTime, moved.EndTime)
	}
	stored, err := s.GetAppointment(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment failed: %v", err)
	}
	if stored.StartTime != "14:00" || stored.EndTime != "15:30" {
		t.Errorf("move not persisted: %s-%s", stored.StartTime, stored.EndTime)
	}
}

func TestMove_ClampsBeforeOpening(t *testing.T) {
	s := newTestService(t)
	appt := mustBook(t, s, "2025-11-16", "10:00", "11:00", "Sarah Johnson")

	moved, err := s.Move(context.Background(), appt.ID, "06:00")
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.StartTime != "08:00" || moved.EndTime != "09:00" {
		t.Errorf("expected clamp to 08:00-09:00, got %s-%s", moved.StartTime, moved.EndTime)
	}
}

func TestMove_ClampsAtClosing(t *testing.T) {
	s := newTestService(t)
	appt := mustBook(t, s, "2025-11-16", "10:00", "11:00", "Sarah Johnson")

	// Target past the end of day: the whole interval shifts back so the
	// end lands on the closing boundary and the duration survives.
	moved, err := s.Move(context.Background(), appt.ID, "23:00")
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.StartTime != "17:00" || moved.EndTime != "18:00" {
		t.Errorf("expected clamp to 17:00-18:00, got %s-%s", moved.StartTime, moved.EndTime)
	}
}

func TestMove_UnknownIDIsNoOp(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "10:00", "11:00", "Sarah Johnson")

	moved, err := s.Move(context.Background(), uuid.New(), "14:00")
	if err != nil {
		t.Fatalf("Move on a stale id must not fail, got %v", err)
	}
	if moved != nil {
		t.Errorf("expected no-op, got %+v", moved)
	}
	stored, _ := s.ListByDate(context.Background(), "2025-11-16")
	if len(stored) != 1 || stored[0].StartTime != "10:00" {
		t.Error("no-op move must leave the schedule untouched")
	}
}

func TestMove_KeepsIdentityAndDescriptiveFields(t *testing.T) {
	s := newTestService(t)
	appt := mustBook(t, s, "2025-11-16", "10:00", "10:30", "Sarah Johnson")
	appt.Treatment = "Root canal"
	appt.Provider = "Dr. Okafor"
	appt.Notes = "sensitive to anesthetic"
	if err := s.repo.Update(context.Background(), appt); err != nil {
		t.Fatalf("seed update failed: %v", err)
	}

	moved, err := s.Move(context.Background(), appt.ID, "12:00")
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.ID != appt.ID {
		t.Error("move must not change the appointment id")
	}
	if moved.Date != "2025-11-16" {
		t.Errorf("move must not change the date, got %s", moved.Date)
	}
	if moved.PatientName != "Sarah Johnson" || moved.Treatment != "Root canal" ||
		moved.Provider != "Dr. Okafor" || moved.Notes != "sensitive to anesthetic" {
		t.Errorf("move must not touch descriptive fields: %+v", moved)
	}
}

// ---------- Query idempotence ----------

func TestQueries_AreReadOnly(t *testing.T) {
	s := newTestService(t)
	mustBook(t, s, "2025-11-16", "09:00", "10:00", "Alice")
	mustBook(t, s, "2025-11-16", "11:00", "12:30", "Bob")

	snapshot := func() []*Appointment {
		appts, err := s.ListByDate(context.Background(), "2025-11-16")
		if err != nil {
			t.Fatalf("ListByDate failed: %v", err)
		}
		return appts
	}

	before := snapshot()
	for i := 0; i < 3; i++ {
		if _, err := s.IsOccupied(context.Background(), "2025-11-16", "09:30"); err != nil {
			t.Fatalf("IsOccupied failed: %v", err)
		}
		if _, err := s.OccupantAt(context.Background(), "2025-11-16", "11:00"); err != nil {
			t.Fatalf("OccupantAt failed: %v", err)
		}
		if _, err := s.FindConflicts(context.Background(), "2025-11-16", "08:00", "18:00"); err != nil {
			t.Fatalf("FindConflicts failed: %v", err)
		}
		if _, err := s.DayView(context.Background(), "2025-11-16"); err != nil {
			t.Fatalf("DayView failed: %v", err)
		}
	}
	after := snapshot()

	if len(before) != len(after) {
		t.Fatalf("queries mutated the schedule: %d -> %d appointments", len(before), len(after))
	}
	for i := range before {
		if *before[i] != *after[i] {
			t.Errorf("appointment %d changed across queries:\nbefore %+v\nafter  %+v", i, before[i], after[i])
		}
	}
}

// ---------- Day view ----------

func TestDayView_Blocks(t *testing.T) {
	s := newTestService(t)
	appt := mustBook(t, s, "2025-11-16", "09:00", "10:30", "Sarah Johnson")

	rows, err := s.DayView(context.Background(), "2025-11-16")
	if err != nil {
		t.Fatalf("DayView failed: %v", err)
	}
	if len(rows) != s.Grid().Len() {
		t.Fatalf("expected %d rows, got %d", s.Grid().Len(), len(rows))
	}

	// 09:00 is index 2 on the 30-minute grid.
	start := rows[2]
	if !start.Occupied || !start.IsStart || start.SpanSlots != 3 {
		t.Errorf("expected start row with span 3, got %+v", start)
	}
	if start.Appointment == nil || start.Appointment.ID != appt.ID {
		t.Error("start row must reference the owning appointment")
	}
	interior := rows[3]
	if !interior.Occupied || interior.IsStart {
		t.Errorf("expected occupied non-start interior row, got %+v", interior)
	}
	if rows[5].Occupied {
		t.Error("10:30 must be free: the end slot of a half-open interval")
	}
	if rows[0].Occupied || rows[0].Appointment != nil {
		t.Errorf("expected empty bookable row at 08:00, got %+v", rows[0])
	}
}
