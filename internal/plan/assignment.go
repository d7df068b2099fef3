package plan

import (
	"sort"

	"studyplan/internal/calendar"
)

// Assignment maps each calendar date to the entries scheduled on it.
//
// The sequencer never puts two entries on one date, but the list-per-date
// shape keeps consumers correct if tracks are ever interleaved.
// An Assignment is treated as an immutable value once produced.
type Assignment map[calendar.Date][]Entry

// Add appends e under its date.
func (a Assignment) Add(e Entry) {
	a[e.Date] = append(a[e.Date], e)
}

// On returns a copy of the entries scheduled on d.
func (a Assignment) On(d calendar.Date) []Entry {
	es := a[d]
	if len(es) == 0 {
		return nil
	}
	out := make([]Entry, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}

// Dates returns the scheduled dates in ascending order.
func (a Assignment) Dates() []calendar.Date {
	ds := make([]calendar.Date, 0, len(a))
	for d, es := range a {
		if len(es) > 0 {
			ds = append(ds, d)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
	return ds
}

// Entries returns every entry ordered by date, then by position within the
// date.
func (a Assignment) Entries() []Entry {
	out := make([]Entry, 0, a.Len())
	for _, d := range a.Dates() {
		for _, e := range a[d] {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Len returns the number of entries.
func (a Assignment) Len() int {
	n := 0
	for _, es := range a {
		n += len(es)
	}
	return n
}

// Clone returns a deep copy.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for d, es := range a {
		cp := make([]Entry, len(es))
		for i, e := range es {
			cp[i] = e.Clone()
		}
		out[d] = cp
	}
	return out
}

// Group builds an Assignment from entries, keeping their relative order
// within each date.
func Group(entries []Entry) Assignment {
	a := make(Assignment)
	for _, e := range entries {
		a.Add(e.Clone())
	}
	return a
}
