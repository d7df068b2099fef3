// Package schedule holds the editable form of a schedule and its snapshot
// format.
//
// Everything here is a value transformation: Flatten turns an assignment
// into an ordered list, ApplyEdit returns a modified copy, Save and Load
// convert to and from Snapshot, and Encode/Decode handle the wire bytes.
// Storage lives elsewhere (see internal/storage).
package schedule

import (
	"fmt"
	"sort"

	"studyplan/internal/plan"
)

// EditablePlan is a schedule as an ordered list of entries, one per
// track day.
type EditablePlan struct {
	Entries []plan.Entry `json:"entries"`
}

// Flatten lists the entries of a ordered by date, then by position within
// the date.
func Flatten(a plan.Assignment) EditablePlan {
	return EditablePlan{Entries: a.Entries()}
}

// Assignment groups the plan's entries back by date.
func (p EditablePlan) Assignment() plan.Assignment {
	return plan.Group(p.Entries)
}

// Index returns the position of the entry with the given ID, or -1.
func (p EditablePlan) Index(entryID string) int {
	for i, e := range p.Entries {
		if e.ID() == entryID {
			return i
		}
	}
	return -1
}

func (p EditablePlan) Len() int { return len(p.Entries) }

func (p EditablePlan) Clone() EditablePlan {
	out := EditablePlan{Entries: make([]plan.Entry, len(p.Entries))}
	for i, e := range p.Entries {
		out.Entries[i] = e.Clone()
	}
	return out
}

// ApplyEdit applies m to the entry with entryID and returns the edited copy.
//
// An edit may move, retag, resize or reorder, but the plan must end up with
// exactly the sessions it started with. Any failure wraps
// plan.ErrInvalidEdit and returns p unchanged.
func ApplyEdit(p EditablePlan, entryID string, m Mutation) (EditablePlan, error) {
	if m == nil {
		return p, fmt.Errorf("%w: no mutation", plan.ErrInvalidEdit)
	}
	i := p.Index(entryID)
	if i < 0 {
		return p, fmt.Errorf("%w: unknown entry %q", plan.ErrInvalidEdit, entryID)
	}

	out := p.Clone()
	if err := m.apply(&out.Entries[i]); err != nil {
		return p, fmt.Errorf("%w: %s: %s: %v", plan.ErrInvalidEdit, entryID, m.Kind(), err)
	}
	if !sameSessions(p.Entries, out.Entries) {
		return p, fmt.Errorf("%w: %s: %s would change the set of sessions", plan.ErrInvalidEdit, entryID, m.Kind())
	}
	sortByDate(out.Entries)
	return out, nil
}

func sessionCounts(entries []plan.Entry) map[string]int {
	m := make(map[string]int)
	for _, e := range entries {
		for _, s := range e.Sessions {
			m[s.Identity()]++
		}
	}
	return m
}

func sameSessions(a, b []plan.Entry) bool {
	ca, cb := sessionCounts(a), sessionCounts(b)
	if len(ca) != len(cb) {
		return false
	}
	for k, n := range ca {
		if cb[k] != n {
			return false
		}
	}
	return true
}

func sortByDate(es []plan.Entry) {
	sort.SliceStable(es, func(i, j int) bool { return es[i].Date.Before(es[j].Date) })
}
