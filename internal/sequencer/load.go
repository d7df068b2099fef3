package sequencer

import (
	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// WeekLoad summarizes one Monday–Sunday week of an assignment.
type WeekLoad struct {
	Monday    calendar.Date
	StudyDays int
	Minutes   int

	// UnderMin / OverMax report the week against the quota's hour bounds.
	// Both stay false when the bound is unset (0).
	UnderMin bool
	OverMax  bool
}

func (w WeekLoad) Hours() float64 { return float64(w.Minutes) / 60 }

// WeeklyLoad returns one row per week that has at least one entry, in date
// order.
func WeeklyLoad(a plan.Assignment, quota plan.Quota) []WeekLoad {
	var (
		out []WeekLoad
		cur *WeekLoad
	)
	for _, d := range a.Dates() {
		mon := calendar.MondayOf(d)
		if cur == nil || cur.Monday != mon {
			out = append(out, WeekLoad{Monday: mon})
			cur = &out[len(out)-1]
		}
		cur.StudyDays++
		for _, e := range a[d] {
			cur.Minutes += e.TotalMinutes
		}
	}
	for i := range out {
		h := out[i].Hours()
		out[i].UnderMin = quota.MinHoursPerWeek > 0 && h < quota.MinHoursPerWeek
		out[i].OverMax = quota.MaxHoursPerWeek > 0 && h > quota.MaxHoursPerWeek
	}
	return out
}

// Span describes the date range an assignment covers.
type Span struct {
	First     calendar.Date
	Last      calendar.Date
	StudyDays int
	Minutes   int
}

// Days returns the number of calendar days from First to Last inclusive.
func (s Span) Days() int {
	if s.First.IsZero() {
		return 0
	}
	return calendar.DaysBetween(s.First, s.Last) + 1
}

// SpanOf returns the covered range; the zero Span for an empty assignment.
func SpanOf(a plan.Assignment) Span {
	ds := a.Dates()
	if len(ds) == 0 {
		return Span{}
	}
	s := Span{First: ds[0], Last: ds[len(ds)-1], StudyDays: len(ds)}
	for _, es := range a {
		for _, e := range es {
			s.Minutes += e.TotalMinutes
		}
	}
	return s
}
