// Package projector turns a dated assignment into a fixed 4-week month
// window for display.
//
// The window always starts on the Sunday on or before the first day of the
// viewed month and holds exactly 28 days, so long months spill past it.
// Later content is reached by moving the month offset, never by growing
// the grid.
package projector

import (
	"fmt"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
)

const (
	WeeksPerGrid = 4
	DaysPerWeek  = 7
	CellsPerGrid = WeeksPerGrid * DaysPerWeek
)

// DayCell is one day of the grid.
type DayCell struct {
	Date           calendar.Date `json:"date"`
	InCurrentMonth bool          `json:"in_current_month"`
	Entries        []plan.Entry  `json:"entries,omitempty"`
}

// Grid is a month window. Weeks[w][d] is day d (0 = Sunday) of week w.
type Grid struct {
	ViewDate   calendar.Date                      `json:"view_date"`
	MonthLabel string                             `json:"month_label"`
	Weeks      [WeeksPerGrid][DaysPerWeek]DayCell `json:"weeks"`
}

// Project builds the grid for the month monthOffset months away from ref.
// The assignment is only read; cell entries are copies.
func Project(a plan.Assignment, ref calendar.Date, monthOffset int) Grid {
	view := calendar.AddMonths(ref, monthOffset)
	start := calendar.StartOfWeek(calendar.StartOfMonth(view))

	g := Grid{ViewDate: view, MonthLabel: MonthLabel(view)}
	for w := 0; w < WeeksPerGrid; w++ {
		for d := 0; d < DaysPerWeek; d++ {
			day := calendar.AddDays(start, w*DaysPerWeek+d)
			g.Weeks[w][d] = DayCell{
				Date:           day,
				InCurrentMonth: day.Year == view.Year && day.Month == view.Month,
				Entries:        a.On(day),
			}
		}
	}
	return g
}

// MonthLabel formats d as "October 2026".
func MonthLabel(d calendar.Date) string {
	return fmt.Sprintf("%s %d", d.Month, d.Year)
}

// Cells returns the 28 cells in date order.
func (g Grid) Cells() []DayCell {
	out := make([]DayCell, 0, CellsPerGrid)
	for _, w := range g.Weeks {
		out = append(out, w[:]...)
	}
	return out
}

// First and Last return the dates the grid covers.
func (g Grid) First() calendar.Date { return g.Weeks[0][0].Date }
func (g Grid) Last() calendar.Date  { return g.Weeks[WeeksPerGrid-1][DaysPerWeek-1].Date }

// EntryCount returns the number of entries visible in the grid.
func (g Grid) EntryCount() int {
	n := 0
	for _, c := range g.Cells() {
		n += len(c.Entries)
	}
	return n
}
