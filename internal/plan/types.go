// Package plan holds the planner's data model: tracks and their daily plans
// as supplied by the content service, the weekly quota, and the dated
// entries produced by the sequencer.
package plan

import (
	"fmt"
	"strings"

	"studyplan/internal/calendar"
)

// Session is one atomic study activity.
type Session struct {
	CourseTitle     string `json:"course_title" yaml:"course_title"`
	LessonTitle     string `json:"lesson_title" yaml:"lesson_title"`
	SectionTitle    string `json:"section_title" yaml:"section_title"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
	Type            string `json:"type" yaml:"type"` // free-form: "video", "exercise", ...
}

// Identity is the part of a session that edits may never change.
// Durations can be resized; everything else identifies the session.
func (s Session) Identity() string {
	return strings.Join([]string{s.CourseTitle, s.LessonTitle, s.SectionTitle, s.Type}, "\x1f")
}

// DailyPlan is what to study in one sitting.
type DailyPlan struct {
	Sessions     []Session `json:"sessions" yaml:"sessions"`
	TotalMinutes int       `json:"total_minutes,omitempty" yaml:"total_minutes,omitempty"`
}

// Total returns the precomputed total, or the sum of session durations when
// the producer left it empty.
func (p DailyPlan) Total() int {
	if p.TotalMinutes > 0 {
		return p.TotalMinutes
	}
	return SumMinutes(p.Sessions)
}

func SumMinutes(ss []Session) int {
	n := 0
	for _, s := range ss {
		n += s.DurationMinutes
	}
	return n
}

// Track is a learning roadmap. Lower TargetScore is more foundational and is
// scheduled first.
type Track struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	TargetScore float64     `json:"target_score" yaml:"target_score"`
	Days        []DailyPlan `json:"days" yaml:"days"`
}

// Quota is the learner's weekly study allowance.
//
// Sunday is always a rest day, so at most six days per week can actually be
// studied. DaysPerWeek = 7 is accepted and capped to 6 (see EffectiveDays).
type Quota struct {
	DaysPerWeek     int     `json:"days_per_week" yaml:"days_per_week"`
	MinHoursPerWeek float64 `json:"min_hours_per_week,omitempty" yaml:"min_hours_per_week,omitempty"`
	MaxHoursPerWeek float64 `json:"max_hours_per_week,omitempty" yaml:"max_hours_per_week,omitempty"`
}

// MaxStudyDays is the number of non-rest days in a week.
const MaxStudyDays = 6

func (q Quota) Validate() error {
	if q.DaysPerWeek < 1 || q.DaysPerWeek > 7 {
		return fmt.Errorf("%w: days_per_week %d out of range [1, 7]", ErrInvalidQuota, q.DaysPerWeek)
	}
	if q.MinHoursPerWeek < 0 || q.MaxHoursPerWeek < 0 {
		return fmt.Errorf("%w: hours per week must be >= 0", ErrInvalidQuota)
	}
	if q.MaxHoursPerWeek > 0 && q.MinHoursPerWeek > q.MaxHoursPerWeek {
		return fmt.Errorf("%w: min_hours_per_week %.1f > max_hours_per_week %.1f",
			ErrInvalidQuota, q.MinHoursPerWeek, q.MaxHoursPerWeek)
	}
	return nil
}

// EffectiveDays returns the number of study days the sequencer will fill per
// week.
func (q Quota) EffectiveDays() int {
	if q.DaysPerWeek > MaxStudyDays {
		return MaxStudyDays
	}
	return q.DaysPerWeek
}

// Validate checks that the track can be scheduled.
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: track %q has an empty id", ErrInvalidTrack, t.Title)
	}
	if len(t.Days) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyTrack, t.ID)
	}
	for i, day := range t.Days {
		if len(day.Sessions) == 0 {
			return fmt.Errorf("%w: %s day %d has no sessions", ErrEmptyTrack, t.ID, i+1)
		}
		for j, s := range day.Sessions {
			if s.DurationMinutes <= 0 {
				return fmt.Errorf("%w: %s day %d session %d has duration %d",
					ErrInvalidSession, t.ID, i+1, j+1, s.DurationMinutes)
			}
		}
	}
	return nil
}

// ValidateTracks validates every track and rejects duplicate ids.
func ValidateTracks(tracks []Track) error {
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateTrack, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// Entry is one daily plan assigned to one calendar date.
type Entry struct {
	Date         calendar.Date `json:"date"`
	TrackID      string        `json:"track_id"`
	TrackTitle   string        `json:"track_title,omitempty"`
	DayIndex     int           `json:"day_index"` // 1-based position in the track
	ColorIndex   int           `json:"color_index"`
	Sessions     []Session     `json:"sessions"`
	TotalMinutes int           `json:"total_minutes"`
}

// ID is stable across runs and edits: "<trackID>#<dayIndex>".
func (e Entry) ID() string { return fmt.Sprintf("%s#%d", e.TrackID, e.DayIndex) }

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	c := e
	c.Sessions = append([]Session(nil), e.Sessions...)
	return c
}
