package sequencer

import (
	"testing"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

func TestWeeklyLoadFlagsBounds(t *testing.T) {
	t.Parallel()
	// 6 days x 30 min, 3 per week -> two weeks of 90 minutes.
	a, err := Sequence([]plan.Track{track("x", 1, 6)}, plan.Quota{DaysPerWeek: 3}, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	rows := WeeklyLoad(a, plan.Quota{DaysPerWeek: 3, MinHoursPerWeek: 2})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Monday != monday || rows[1].Monday != calendar.AddDays(monday, 7) {
		t.Fatalf("mondays = %v, %v", rows[0].Monday, rows[1].Monday)
	}
	if rows[0].StudyDays != 3 || rows[0].Minutes != 90 {
		t.Fatalf("week 1 = %+v", rows[0])
	}
	if !rows[0].UnderMin || rows[0].OverMax {
		t.Fatalf("week 1 flags = %+v, want under min only", rows[0])
	}

	rows = WeeklyLoad(a, plan.Quota{DaysPerWeek: 3, MaxHoursPerWeek: 1})
	if !rows[1].OverMax || rows[1].UnderMin {
		t.Fatalf("week 2 flags = %+v, want over max only", rows[1])
	}
}

func TestSpanOf(t *testing.T) {
	t.Parallel()
	if s := SpanOf(plan.Assignment{}); s.Days() != 0 || !s.First.IsZero() {
		t.Fatalf("empty span = %+v", s)
	}
	a, err := Sequence([]plan.Track{track("x", 1, 6)}, plan.Quota{DaysPerWeek: 3}, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	s := SpanOf(a)
	if s.First != monday || s.Last != calendar.AddDays(monday, 9) {
		t.Fatalf("span = %v..%v", s.First, s.Last)
	}
	if s.Days() != 10 || s.StudyDays != 6 || s.Minutes != 180 {
		t.Fatalf("span = %+v (days %d)", s, s.Days())
	}
}

func TestMemoCachesAndIsolates(t *testing.T) {
	t.Parallel()
	m := NewMemo(2)
	in := []plan.Track{track("x", 1, 3)}
	q := plan.Quota{DaysPerWeek: 5}

	a1, err := m.Sequence(in, q, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	a1[monday][0].Sessions[0].DurationMinutes = 999

	a2, err := m.Sequence(in, q, monday)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if a2[monday][0].Sessions[0].DurationMinutes != 30 {
		t.Fatal("cached assignment was mutated through a returned value")
	}
	if hits, misses := m.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits / %d misses, want 1/1", hits, misses)
	}

	// Different start is a different key; eviction keeps at most 2.
	for i := 1; i <= 3; i++ {
		if _, err := m.Sequence(in, q, calendar.AddDays(monday, i)); err != nil {
			t.Fatalf("Sequence: %v", err)
		}
	}
	m.mu.Lock()
	n := len(m.items)
	m.mu.Unlock()
	if n != 2 {
		t.Fatalf("memo size = %d, want 2", n)
	}

	if _, err := m.Sequence(in, plan.Quota{}, monday); err == nil {
		t.Fatal("expected quota error through memo")
	}
}

func TestInputHashStable(t *testing.T) {
	t.Parallel()
	in := []plan.Track{track("x", 1, 3)}
	q := plan.Quota{DaysPerWeek: 5}
	if InputHash(in, q, monday) != InputHash(in, q, monday) {
		t.Fatal("hash not stable")
	}
	if InputHash(in, q, monday) == InputHash(in, plan.Quota{DaysPerWeek: 4}, monday) {
		t.Fatal("quota change did not change hash")
	}
}
