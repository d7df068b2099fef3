// Package sequencer linearizes several learning tracks into one dated study
// calendar.
//
// Tracks are scheduled one after another (never interleaved), ordered by
// target score, each track's daily plans keep their original order, Sunday
// is always a rest day and no Monday–Saturday week holds more study days
// than the weekly quota allows.
//
// Basic usage:
//
//	a, err := sequencer.Sequence(tracks, plan.Quota{DaysPerWeek: 5}, calendar.Today(nil))
//	if err != nil {
//	    return err
//	}
//	grid := projector.Project(a, calendar.Today(nil), 0)
package sequencer

import (
	"fmt"
	"sort"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// Sequence assigns every daily plan of every track to exactly one date,
// starting at start. The inputs are not mutated.
//
// An empty track list yields an empty assignment. Invalid quotas, a zero
// start date and invalid tracks fail with the matching plan error before
// anything is scheduled. Out-of-range start fields are normalized.
func Sequence(tracks []plan.Track, quota plan.Quota, start calendar.Date) (plan.Assignment, error) {
	if err := quota.Validate(); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: missing start date", plan.ErrInvalidDate)
	}
	out := make(plan.Assignment)
	if len(tracks) == 0 {
		return out, nil
	}
	if err := plan.ValidateTracks(tracks); err != nil {
		return nil, err
	}

	order := sortByTarget(tracks)
	perWeek := quota.EffectiveDays()

	cursor := start.Normalize()
	if cursor.IsSunday() {
		cursor = calendar.AddDays(cursor, 1)
	}
	studied := 0

	for _, idx := range order {
		t := tracks[idx]
		for i, day := range t.Days {
			out.Add(plan.Entry{
				Date:         cursor,
				TrackID:      t.ID,
				TrackTitle:   t.Title,
				DayIndex:     i + 1,
				ColorIndex:   idx,
				Sessions:     append([]plan.Session(nil), day.Sessions...),
				TotalMinutes: day.Total(),
			})
			studied++
			studiedOn := cursor
			cursor = calendar.AddDays(cursor, 1)

			if studied >= perWeek {
				cursor = calendar.NextMonday(studiedOn)
				studied = 0
			}
			if cursor.IsSunday() {
				cursor = calendar.AddDays(cursor, 1)
				studied = 0
			}
		}
	}
	return out, nil
}

// sortByTarget returns track indexes ordered by ascending target score.
// Equal scores keep their input order.
func sortByTarget(tracks []plan.Track) []int {
	idx := make([]int, len(tracks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return tracks[idx[a]].TargetScore < tracks[idx[b]].TargetScore
	})
	return idx
}
