package plan

import (
	"errors"
	"testing"
	"time"

	"studyplan/internal/calendar"
)

func TestQuotaValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		q       Quota
		wantErr bool
	}{
		{name: "one", q: Quota{DaysPerWeek: 1}},
		{name: "seven", q: Quota{DaysPerWeek: 7}},
		{name: "zero", q: Quota{DaysPerWeek: 0}, wantErr: true},
		{name: "eight", q: Quota{DaysPerWeek: 8}, wantErr: true},
		{name: "negative hours", q: Quota{DaysPerWeek: 3, MinHoursPerWeek: -1}, wantErr: true},
		{name: "min above max", q: Quota{DaysPerWeek: 3, MinHoursPerWeek: 9, MaxHoursPerWeek: 4}, wantErr: true},
		{name: "max unbounded", q: Quota{DaysPerWeek: 3, MinHoursPerWeek: 9}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.q.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuota) {
					t.Fatalf("Validate() = %v, want ErrInvalidQuota", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
		})
	}
}

func TestEffectiveDaysCapsAtSix(t *testing.T) {
	t.Parallel()
	if got := (Quota{DaysPerWeek: 7}).EffectiveDays(); got != 6 {
		t.Fatalf("EffectiveDays = %d, want 6", got)
	}
	if got := (Quota{DaysPerWeek: 4}).EffectiveDays(); got != 4 {
		t.Fatalf("EffectiveDays = %d, want 4", got)
	}
}

func TestValidateTracks(t *testing.T) {
	t.Parallel()
	day := DailyPlan{Sessions: []Session{{CourseTitle: "c", DurationMinutes: 30}}}
	ok := Track{ID: "a", Days: []DailyPlan{day}}

	if err := ValidateTracks([]Track{ok}); err != nil {
		t.Fatalf("ValidateTracks: %v", err)
	}
	if err := ValidateTracks([]Track{ok, ok}); !errors.Is(err, ErrDuplicateTrack) {
		t.Fatalf("duplicate: got %v", err)
	}
	if err := ValidateTracks([]Track{{ID: "b"}}); !errors.Is(err, ErrEmptyTrack) {
		t.Fatalf("empty: got %v", err)
	}
	if err := ValidateTracks([]Track{{ID: "c", Days: []DailyPlan{{}}}}); !errors.Is(err, ErrEmptyTrack) {
		t.Fatalf("empty day: got %v", err)
	}
	bad := Track{ID: "d", Days: []DailyPlan{{Sessions: []Session{{DurationMinutes: 0}}}}}
	if err := ValidateTracks([]Track{bad}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("zero duration: got %v", err)
	}
	if err := ValidateTracks([]Track{{Days: []DailyPlan{day}}}); !errors.Is(err, ErrInvalidTrack) {
		t.Fatalf("empty id: got %v", err)
	}
}

func TestDailyPlanTotalFallsBackToSum(t *testing.T) {
	t.Parallel()
	p := DailyPlan{Sessions: []Session{{DurationMinutes: 30}, {DurationMinutes: 15}}}
	if p.Total() != 45 {
		t.Fatalf("Total = %d, want 45", p.Total())
	}
	p.TotalMinutes = 50
	if p.Total() != 50 {
		t.Fatalf("Total = %d, want precomputed 50", p.Total())
	}
}

func TestAssignmentOrderingAndCopies(t *testing.T) {
	t.Parallel()
	d1 := calendar.New(2026, time.October, 20)
	d2 := calendar.New(2026, time.October, 19)
	a := Group([]Entry{
		{Date: d1, TrackID: "a", DayIndex: 2, Sessions: []Session{{LessonTitle: "x", DurationMinutes: 10}}},
		{Date: d2, TrackID: "a", DayIndex: 1, Sessions: []Session{{LessonTitle: "y", DurationMinutes: 10}}},
	})
	if a.Len() != 2 {
		t.Fatalf("Len = %d", a.Len())
	}
	es := a.Entries()
	if es[0].ID() != "a#1" || es[1].ID() != "a#2" {
		t.Fatalf("Entries order = %s, %s", es[0].ID(), es[1].ID())
	}
	es[0].Sessions[0].LessonTitle = "mutated"
	if a[d2][0].Sessions[0].LessonTitle != "y" {
		t.Fatal("Entries() leaked a shared session slice")
	}
	cp := a.Clone()
	cp[d1][0].Sessions[0].DurationMinutes = 99
	if a[d1][0].Sessions[0].DurationMinutes != 10 {
		t.Fatal("Clone() is shallow")
	}
}
