// Package slotgrid defines the slot catalog for a clinic day: an ordered,
// evenly spaced sequence of HH:MM labels used as the coordinate system for
// all appointment interval arithmetic. A Grid is built once at startup and
// never mutated; all lookups are pure.
package slotgrid

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by grid construction and span validation.
var (
	ErrUnknownLabel    = errors.New("time label is not a slot boundary")
	ErrInvalidInterval = errors.New("end time must be after start time")
)

// Grid is the ordered catalog of same-length time slots for a single day.
// The label at position i marks the start of slot i; the closing label is
// the one-past-the-last boundary ("ends at closing time").
type Grid struct {
	labels  []string
	index   map[string]int
	close   string
	slotMin int
}

// New builds a grid from an opening time, a closing time and a slot length,
// e.g. New("08:00", "18:00", 30) yields 20 slots labelled 08:00 .. 17:30.
func New(open, close string, slotMinutes int) (*Grid, error) {
	openMin, err := parseLabel(open)
	if err != nil {
		return nil, fmt.Errorf("invalid opening time %q: %w", open, err)
	}
	closeMin, err := parseLabel(close)
	if err != nil {
		return nil, fmt.Errorf("invalid closing time %q: %w", close, err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("closing time %s must be after opening time %s", close, open)
	}
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("slot length must be positive, got %d", slotMinutes)
	}
	span := closeMin - openMin
	if span%slotMinutes != 0 {
		return nil, fmt.Errorf("slot length %dm does not divide the %s-%s window evenly", slotMinutes, open, close)
	}

	n := span / slotMinutes
	g := &Grid{
		labels:  make([]string, n),
		index:   make(map[string]int, n),
		close:   formatLabel(closeMin),
		slotMin: slotMinutes,
	}
	for i := 0; i < n; i++ {
		label := formatLabel(openMin + i*slotMinutes)
		g.labels[i] = label
		g.index[label] = i
	}
	return g, nil
}

// Len returns the number of slots in the catalog.
func (g *Grid) Len() int { return len(g.labels) }

// SlotMinutes returns the length of one slot in minutes.
func (g *Grid) SlotMinutes() int { return g.slotMin }

// Close returns the closing boundary label (one past the last slot).
func (g *Grid) Close() string { return g.close }

// Labels returns a copy of the slot label catalog in order.
func (g *Grid) Labels() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// IndexOf returns the position of a slot label, or false if the label is
// not a recognized slot boundary.
func (g *Grid) IndexOf(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// LabelAt is the inverse of IndexOf; false when i falls outside [0, Len).
func (g *Grid) LabelAt(i int) (string, bool) {
	if i < 0 || i >= len(g.labels) {
		return "", false
	}
	return g.labels[i], true
}

// EndIndexOf resolves an end-time label to its boundary index in [1, Len].
// Unlike IndexOf it also accepts the closing label, which maps to Len.
func (g *Grid) EndIndexOf(label string) (int, bool) {
	if label == g.close {
		return len(g.labels), true
	}
	i, ok := g.index[label]
	return i, ok
}

// Span validates a half-open [start, end) interval against the catalog and
// returns its slot indices. The end label may be the closing boundary.
func (g *Grid) Span(start, end string) (si, ei int, err error) {
	si, ok := g.IndexOf(start)
	if !ok {
		return 0, 0, fmt.Errorf("start %q: %w", start, ErrUnknownLabel)
	}
	ei, ok = g.EndIndexOf(end)
	if !ok {
		return 0, 0, fmt.Errorf("end %q: %w", end, ErrUnknownLabel)
	}
	if ei <= si {
		return 0, 0, fmt.Errorf("%s-%s: %w", start, end, ErrInvalidInterval)
	}
	return si, ei, nil
}

// Clamp snaps an index into the valid slot range [0, Len-1].
func (g *Grid) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(g.labels) {
		return len(g.labels) - 1
	}
	return i
}

// NearestIndex resolves a time label to the nearest valid slot index and
// never fails: an exact boundary wins, a label before opening snaps to 0,
// one at or past closing snaps to the last slot, and an unaligned or
// malformed interior label snaps to the slot containing it. Used for move
// targets, where an overshot drag must land on the grid rather than error.
func (g *Grid) NearestIndex(label string) int {
	if i, ok := g.index[label]; ok {
		return i
	}
	min, err := parseLabel(label)
	if err != nil {
		return 0
	}
	openMin, _ := parseLabel(g.labels[0])
	return g.Clamp((min - openMin) / g.slotMin)
}

func parseLabel(label string) (int, error) {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatLabel(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
