package projector

import (
	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

// Navigator walks month windows relative to a fixed reference date.
// It is not safe for concurrent use.
type Navigator struct {
	ref    calendar.Date
	offset int
}

func NewNavigator(ref calendar.Date) *Navigator {
	return &Navigator{ref: ref}
}

func (n *Navigator) Offset() int              { return n.offset }
func (n *Navigator) Reference() calendar.Date { return n.ref }

// Next moves one month forward and returns the new grid.
func (n *Navigator) Next(a plan.Assignment) Grid {
	n.offset++
	return n.Current(a)
}

// Prev moves one month back and returns the new grid.
func (n *Navigator) Prev(a plan.Assignment) Grid {
	n.offset--
	return n.Current(a)
}

// Reset returns to the reference month.
func (n *Navigator) Reset(a plan.Assignment) Grid {
	n.offset = 0
	return n.Current(a)
}

// Seek jumps to offset months from the reference.
func (n *Navigator) Seek(a plan.Assignment, offset int) Grid {
	n.offset = offset
	return n.Current(a)
}

func (n *Navigator) Current(a plan.Assignment) Grid {
	return Project(a, n.ref, n.offset)
}
