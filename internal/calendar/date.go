// Package calendar provides the pure date math used by the planner.
//
// Date is a civil date without time-of-day or location. It is comparable,
// so it can be used directly as a map key, and every operation returns a
// new value instead of mutating its receiver.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the serialized form of a Date ("2006-01-02").
const KeyLayout = "2006-01-02"

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for y-m-d (e.g. Feb 30 becomes Mar 2).
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime drops the time-of-day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in loc (time.Local when nil).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

func (d Date) IsZero() bool { return d == Date{} }

// Normalize folds out-of-range fields into a real date ({2026, 11, 31}
// becomes 2026-12-01). The zero Date stays zero.
func (d Date) Normalize() Date {
	if d.IsZero() {
		return d
	}
	return New(d.Year, d.Month, d.Day)
}

// Time returns midnight of d in loc (UTC when nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday { return d.Time(nil).Weekday() }

func (d Date) IsSunday() bool { return d.Weekday() == time.Sunday }

// Key returns the "2006-01-02" form used for map lookups and persistence.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) String() string { return d.Key() }

// ParseKey parses a "2006-01-02" key.
func ParseKey(s string) (Date, error) {
	t, err := time.Parse(KeyLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.Key()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	v, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }
func (d Date) Equal(o Date) bool  { return d == o }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
