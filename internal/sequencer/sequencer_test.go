package sequencer

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// 2026-10-19 is a Monday.
var monday = calendar.New(2026, time.October, 19)

func session(course string, lesson int, minutes int) plan.Session {
	return plan.Session{
		CourseTitle:     course,
		LessonTitle:     fmt.Sprintf("lesson %d", lesson),
		SectionTitle:    "main",
		DurationMinutes: minutes,
		Type:            "video",
	}
}

func track(id string, target float64, days int) plan.Track {
	t := plan.Track{ID: id, Title: "Track " + id, TargetScore: target}
	for i := 0; i < days; i++ {
		t.Days = append(t.Days, plan.DailyPlan{Sessions: []plan.Session{session(id, i+1, 30)}})
	}
	return t
}

func datesOf(a plan.Assignment, trackID string) []calendar.Date {
	var out []calendar.Date
	for _, e := range a.Entries() {
		if e.TrackID == trackID {
			out = append(out, e.Date)
		}
	}
	return out
}

func TestScenarioTwoTracksSharedWeek(t *testing.T) {
	t.Parallel()
	a := plan.Track{ID: "a", TargetScore: 450, Days: []plan.DailyPlan{{
		Sessions: []plan.Session{session("A", 1, 30), session("A", 2, 30)},
	}}}
	b := plan.Track{ID: "b", TargetScore: 600, Days: []plan.DailyPlan{{
		Sessions: []plan.Session{session("B", 1, 60)},
	}}}

	// Input order reversed on purpose: target score decides.
	got, err := Sequence([]plan.Track{b, a}, plan.Quota{DaysPerWeek: 5}, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if es := got[monday]; len(es) != 1 || es[0].TrackID != "a" {
		t.Fatalf("monday entries = %+v, want track a", es)
	}
	if es := got[calendar.AddDays(monday, 1)]; len(es) != 1 || es[0].TrackID != "b" {
		t.Fatalf("tuesday entries = %+v, want track b", es)
	}
	if got[monday][0].TotalMinutes != 60 {
		t.Fatalf("TotalMinutes = %d, want 60", got[monday][0].TotalMinutes)
	}
	if got[monday][0].ColorIndex != 1 {
		t.Fatalf("ColorIndex = %d, want input position 1", got[monday][0].ColorIndex)
	}
}

func TestScenarioQuotaJumpsToNextMonday(t *testing.T) {
	t.Parallel()
	got, err := Sequence([]plan.Track{track("x", 500, 6)}, plan.Quota{DaysPerWeek: 3}, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	want := []calendar.Date{
		monday, calendar.AddDays(monday, 1), calendar.AddDays(monday, 2),
		calendar.AddDays(monday, 7), calendar.AddDays(monday, 8), calendar.AddDays(monday, 9),
	}
	dates := datesOf(got, "x")
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d", len(dates), len(want))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("plan %d on %v, want %v", i+1, dates[i], want[i])
		}
	}
}

func TestSequenceEdgeStarts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		start calendar.Date
		quota int
		days  int
		want  []calendar.Date
	}{
		{
			name:  "sunday start moves to monday",
			start: calendar.AddDays(monday, -1),
			quota: 2, days: 2,
			want: []calendar.Date{monday, calendar.AddDays(monday, 1)},
		},
		{
			name:  "friday start skips sunday and resets",
			start: calendar.AddDays(monday, 4),
			quota: 5, days: 4,
			want: []calendar.Date{
				calendar.AddDays(monday, 4), calendar.AddDays(monday, 5),
				calendar.AddDays(monday, 7), calendar.AddDays(monday, 8),
			},
		},
		{
			name:  "seven days capped to six",
			start: monday,
			quota: 7, days: 7,
			want: []calendar.Date{
				monday, calendar.AddDays(monday, 1), calendar.AddDays(monday, 2),
				calendar.AddDays(monday, 3), calendar.AddDays(monday, 4), calendar.AddDays(monday, 5),
				calendar.AddDays(monday, 7),
			},
		},
		{
			name:  "out-of-range start is normalized",
			start: calendar.Date{Year: 2026, Month: time.November, Day: 31},
			quota: 5, days: 2,
			want:  []calendar.Date{calendar.New(2026, time.December, 1), calendar.New(2026, time.December, 2)},
		},
		{
			name:  "one day per week",
			start: calendar.AddDays(monday, 2),
			quota: 1, days: 3,
			want: []calendar.Date{
				calendar.AddDays(monday, 2), calendar.AddDays(monday, 7), calendar.AddDays(monday, 14),
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := Sequence([]plan.Track{track("t", 1, tt.days)}, plan.Quota{DaysPerWeek: tt.quota}, tt.start)
			if err != nil {
				t.Fatalf("Sequence: %v", err)
			}
			got := datesOf(a, "t")
			if len(got) != len(tt.want) {
				t.Fatalf("dates = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("dates = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSequenceErrors(t *testing.T) {
	t.Parallel()
	if _, err := Sequence([]plan.Track{track("a", 1, 1)}, plan.Quota{DaysPerWeek: 0}, monday); !errors.Is(err, plan.ErrInvalidQuota) {
		t.Fatalf("quota 0: got %v", err)
	}
	if _, err := Sequence([]plan.Track{track("a", 1, 1)}, plan.Quota{DaysPerWeek: 8}, monday); !errors.Is(err, plan.ErrInvalidQuota) {
		t.Fatalf("quota 8: got %v", err)
	}
	if _, err := Sequence([]plan.Track{track("a", 1, 1), {ID: "empty"}}, plan.Quota{DaysPerWeek: 3}, monday); !errors.Is(err, plan.ErrEmptyTrack) {
		t.Fatalf("empty track: got %v", err)
	}
	if _, err := Sequence([]plan.Track{track("a", 1, 1)}, plan.Quota{DaysPerWeek: 3}, calendar.Date{}); !errors.Is(err, plan.ErrInvalidDate) {
		t.Fatalf("zero start: got %v", err)
	}
	if _, err := Sequence(nil, plan.Quota{DaysPerWeek: 3}, calendar.Date{}); !errors.Is(err, plan.ErrInvalidDate) {
		t.Fatalf("zero start, no tracks: got %v", err)
	}
	a, err := Sequence(nil, plan.Quota{DaysPerWeek: 3}, monday)
	if err != nil {
		t.Fatalf("empty input: %v", err)
	}
	if a == nil || a.Len() != 0 {
		t.Fatalf("empty input: got %v, want empty assignment", a)
	}
}

func TestSequenceDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	in := []plan.Track{track("b", 700, 2), track("a", 100, 2)}
	_, err := Sequence(in, plan.Quota{DaysPerWeek: 5}, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if in[0].ID != "b" || in[1].ID != "a" {
		t.Fatal("input slice was reordered")
	}
}

func randomTracks(rng *rand.Rand) []plan.Track {
	n := 1 + rng.Intn(5)
	out := make([]plan.Track, 0, n)
	for i := 0; i < n; i++ {
		t := plan.Track{ID: fmt.Sprintf("t%d", i), TargetScore: float64(rng.Intn(4) * 100)}
		days := 1 + rng.Intn(15)
		for d := 0; d < days; d++ {
			var ss []plan.Session
			for k := 0; k < 1+rng.Intn(3); k++ {
				ss = append(ss, session(t.ID, d*10+k, 5+rng.Intn(60)))
			}
			t.Days = append(t.Days, plan.DailyPlan{Sessions: ss})
		}
		out = append(out, t)
	}
	return out
}

func sessionKeys(ss []plan.Session) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, fmt.Sprintf("%s|%d", s.Identity(), s.DurationMinutes))
	}
	return out
}

func TestSequenceProperties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		tracks := randomTracks(rng)
		quota := plan.Quota{DaysPerWeek: 1 + rng.Intn(7)}
		start := calendar.AddDays(monday, rng.Intn(14))

		a, err := Sequence(tracks, quota, start)
		if err != nil {
			t.Fatalf("iter %d: Sequence: %v", iter, err)
		}

		// Completeness: same multiset of sessions.
		var want, got []string
		for _, tr := range tracks {
			for _, d := range tr.Days {
				want = append(want, sessionKeys(d.Sessions)...)
			}
		}
		for _, e := range a.Entries() {
			got = append(got, sessionKeys(e.Sessions)...)
		}
		sort.Strings(want)
		sort.Strings(got)
		if fmt.Sprint(want) != fmt.Sprint(got) {
			t.Fatalf("iter %d: session multiset differs", iter)
		}

		perWeek := map[calendar.Date]int{}
		for _, d := range a.Dates() {
			// No Sunday.
			if d.IsSunday() {
				t.Fatalf("iter %d: entry on Sunday %v", iter, d)
			}
			if len(a[d]) != 1 {
				t.Fatalf("iter %d: %d entries on %v", iter, len(a[d]), d)
			}
			perWeek[calendar.MondayOf(d)]++
		}
		// Quota respect.
		for mon, n := range perWeek {
			if n > quota.EffectiveDays() {
				t.Fatalf("iter %d: week of %v has %d days, quota %d", iter, mon, n, quota.DaysPerWeek)
			}
		}

		// Order preservation within a track.
		byTrack := map[string][]plan.Entry{}
		for _, e := range a.Entries() {
			byTrack[e.TrackID] = append(byTrack[e.TrackID], e)
		}
		for id, es := range byTrack {
			for i := range es {
				if es[i].DayIndex != i+1 {
					t.Fatalf("iter %d: track %s day %d out of order", iter, id, es[i].DayIndex)
				}
				if i > 0 && !es[i-1].Date.Before(es[i].Date) {
					t.Fatalf("iter %d: track %s dates not strictly increasing", iter, id)
				}
			}
		}

		// Non-interleaving: lower target score finishes before higher starts.
		for _, ta := range tracks {
			for _, tb := range tracks {
				if ta.TargetScore >= tb.TargetScore {
					continue
				}
				ea, eb := byTrack[ta.ID], byTrack[tb.ID]
				if !ea[len(ea)-1].Date.Before(eb[0].Date) {
					t.Fatalf("iter %d: %s (%.0f) overlaps %s (%.0f)", iter, ta.ID, ta.TargetScore, tb.ID, tb.TargetScore)
				}
			}
		}
	}
}
