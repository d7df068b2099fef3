package schedule

import (
	"encoding/json"
	"time"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// Encode serializes s as JSON. A zero Version is written as CurrentVersion.
func Encode(s Snapshot) ([]byte, error) {
	if s.Version == 0 {
		s.Version = CurrentVersion
	}
	if s.Entries == nil {
		s.Entries = []plan.Entry{}
	}
	return json.Marshal(s)
}

// Decode parses a snapshot. Unknown fields are ignored so newer writers
// stay readable; missing required fields and malformed values fail with
// plan.ErrCorruptSnapshot. The result is validated as by Load.
func Decode(b []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return Snapshot{}, corrupt("%v", err)
	}
	switch {
	case w.Version == nil:
		return Snapshot{}, corrupt("missing version")
	case w.CreatedAt == nil:
		return Snapshot{}, corrupt("missing created_at")
	case w.Quota == nil:
		return Snapshot{}, corrupt("missing quota")
	case w.Entries == nil:
		return Snapshot{}, corrupt("missing entries")
	}

	s := Snapshot{
		Version:   *w.Version,
		ID:        w.ID,
		CreatedAt: *w.CreatedAt,
		Quota:     *w.Quota,
		TrackIDs:  w.TrackIDs,
		StartDate: w.StartDate,
		Entries:   make([]plan.Entry, 0, len(*w.Entries)),
	}
	for i, we := range *w.Entries {
		switch {
		case we.Date == nil:
			return Snapshot{}, corrupt("entry %d: missing date", i)
		case we.TrackID == nil:
			return Snapshot{}, corrupt("entry %d: missing track_id", i)
		case we.Sessions == nil:
			return Snapshot{}, corrupt("entry %d: missing sessions", i)
		}
		e := plan.Entry{
			Date:       *we.Date,
			TrackID:    *we.TrackID,
			TrackTitle: we.TrackTitle,
			DayIndex:   we.DayIndex,
			ColorIndex: we.ColorIndex,
			Sessions:   *we.Sessions,
		}
		if we.TotalMinutes == nil {
			e.TotalMinutes = plan.SumMinutes(e.Sessions)
		} else {
			e.TotalMinutes = *we.TotalMinutes
		}
		s.Entries = append(s.Entries, e)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// wireSnapshot mirrors Snapshot with pointers so absent fields can be told
// apart from zero values.
type wireSnapshot struct {
	Version   *int          `json:"version"`
	ID        string        `json:"id"`
	CreatedAt *time.Time    `json:"created_at"`
	Quota     *plan.Quota   `json:"quota"`
	TrackIDs  []string      `json:"track_ids"`
	StartDate calendar.Date `json:"start_date"`
	Entries   *[]wireEntry  `json:"entries"`
}

type wireEntry struct {
	Date         *calendar.Date  `json:"date"`
	TrackID      *string         `json:"track_id"`
	TrackTitle   string          `json:"track_title"`
	DayIndex     int             `json:"day_index"`
	ColorIndex   int             `json:"color_index"`
	Sessions     *[]plan.Session `json:"sessions"`
	TotalMinutes *int            `json:"total_minutes"`
}
