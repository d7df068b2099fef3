package schedule

import (
	"errors"
	"fmt"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// Mutation is one change to a single entry. The set is closed: MoveTo,
// Retag, Resize and ReplaceSessions.
type Mutation interface {
	Kind() string
	apply(e *plan.Entry) error
}

// MoveTo reschedules an entry onto another study day.
type MoveTo struct {
	Date calendar.Date
}

func (MoveTo) Kind() string { return "move" }

func (m MoveTo) apply(e *plan.Entry) error {
	d := m.Date.Normalize()
	switch {
	case d.IsZero():
		return errors.New("missing date")
	case d.IsSunday():
		return fmt.Errorf("%s is a Sunday", d)
	}
	e.Date = d
	return nil
}

// Retag changes the colour slot used to draw the entry.
type Retag struct {
	ColorIndex int
}

func (Retag) Kind() string { return "retag" }

func (m Retag) apply(e *plan.Entry) error {
	if m.ColorIndex < 0 {
		return fmt.Errorf("color index %d < 0", m.ColorIndex)
	}
	e.ColorIndex = m.ColorIndex
	return nil
}

// Resize changes the duration of one session (0-based) in the entry.
type Resize struct {
	Session int
	Minutes int
}

func (Resize) Kind() string { return "resize" }

func (m Resize) apply(e *plan.Entry) error {
	if m.Session < 0 || m.Session >= len(e.Sessions) {
		return fmt.Errorf("session %d out of range [0, %d)", m.Session, len(e.Sessions))
	}
	if m.Minutes <= 0 {
		return fmt.Errorf("duration %d must be > 0", m.Minutes)
	}
	e.Sessions[m.Session].DurationMinutes = m.Minutes
	e.TotalMinutes = plan.SumMinutes(e.Sessions)
	return nil
}

// ReplaceSessions sets the entry's session list, typically to reorder it.
// Durations may differ; the sessions themselves may not.
type ReplaceSessions struct {
	Sessions []plan.Session
}

func (ReplaceSessions) Kind() string { return "replace_sessions" }

func (m ReplaceSessions) apply(e *plan.Entry) error {
	if len(m.Sessions) == 0 {
		return errors.New("empty session list")
	}
	for i, s := range m.Sessions {
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("session %d duration %d must be > 0", i, s.DurationMinutes)
		}
	}
	e.Sessions = append([]plan.Session(nil), m.Sessions...)
	e.TotalMinutes = plan.SumMinutes(e.Sessions)
	return nil
}
