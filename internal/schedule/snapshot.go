package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// CurrentVersion is the snapshot format written by Save.
const CurrentVersion = 1

// Snapshot is an immutable capture of a schedule together with the inputs
// that produced it.
type Snapshot struct {
	Version   int           `json:"version"`
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Quota     plan.Quota    `json:"quota"`
	TrackIDs  []string      `json:"track_ids"`
	StartDate calendar.Date `json:"start_date"`
	Entries   []plan.Entry  `json:"entries"`
}

// Save captures p. now is the creation timestamp (UTC is stored).
func Save(p EditablePlan, quota plan.Quota, trackIDs []string, start calendar.Date, now time.Time) Snapshot {
	return Snapshot{
		Version:   CurrentVersion,
		ID:        uuid.NewString(),
		CreatedAt: now.UTC(),
		Quota:     quota,
		TrackIDs:  append([]string(nil), trackIDs...),
		StartDate: start.Normalize(),
		Entries:   p.Clone().Entries,
	}
}

// SaveAssignment is Save(Flatten(a), ...).
func SaveAssignment(a plan.Assignment, quota plan.Quota, trackIDs []string, start calendar.Date, now time.Time) Snapshot {
	return Save(Flatten(a), quota, trackIDs, start, now)
}

// Plan returns the snapshot's entries as an editable plan.
func (s Snapshot) Plan() EditablePlan {
	return EditablePlan{Entries: s.Entries}.Clone()
}

// Load rehydrates s into the assignment shape the sequencer produces.
// Invalid content fails with plan.ErrCorruptSnapshot.
func Load(s Snapshot) (plan.Assignment, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return plan.Group(s.Entries), nil
}

// Validate checks everything Load relies on.
func (s Snapshot) Validate() error {
	if s.Version < 1 || s.Version > CurrentVersion {
		return corrupt("unsupported version %d", s.Version)
	}
	if s.CreatedAt.IsZero() {
		return corrupt("missing created_at")
	}
	if err := s.Quota.Validate(); err != nil {
		return corrupt("quota: %v", err)
	}
	seen := make(map[string]struct{}, len(s.Entries))
	for i, e := range s.Entries {
		switch {
		case e.Date.IsZero():
			return corrupt("entry %d: missing date", i)
		case e.TrackID == "":
			return corrupt("entry %d: missing track_id", i)
		case e.DayIndex < 1:
			return corrupt("entry %d: day_index %d < 1", i, e.DayIndex)
		case len(e.Sessions) == 0:
			return corrupt("entry %d: no sessions", i)
		}
		for j, ss := range e.Sessions {
			if ss.DurationMinutes <= 0 {
				return corrupt("entry %d session %d: duration %d", i, j, ss.DurationMinutes)
			}
		}
		if _, dup := seen[e.ID()]; dup {
			return corrupt("duplicate entry %s", e.ID())
		}
		seen[e.ID()] = struct{}{}
	}
	return nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", plan.ErrCorruptSnapshot, fmt.Sprintf(format, args...))
}
