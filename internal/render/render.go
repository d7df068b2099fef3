package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"studyplan/internal/calendar"
	"studyplan/internal/plan"
	"studyplan/internal/projector"
	"studyplan/internal/schedule"
	"studyplan/internal/sequencer"
	"studyplan/internal/storage"
)

var weekdayHeaders = [projector.DaysPerWeek]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Minutes formats a duration in minutes as "45m", "2h" or "1h30m".
func Minutes(n int) string {
	h, m := n/60, n%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// Grid renders a month view: a title line, a weekday header and four rows
// of day cells. Each cell lists its entries as "<id> <minutes>".
func (r *Renderer) Grid(g projector.Grid) string {
	var b strings.Builder
	b.WriteString(r.style(r.title, g.MonthLabel))
	b.WriteByte('\n')

	head := make([]string, 0, projector.DaysPerWeek)
	for _, h := range weekdayHeaders {
		head = append(head, r.cell.Render(r.style(r.header, h)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, head...))
	b.WriteByte('\n')

	for _, week := range g.Weeks {
		cells := make([]string, 0, projector.DaysPerWeek)
		for _, c := range week {
			cells = append(cells, r.cell.Render(r.dayCell(c)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *Renderer) dayCell(c projector.DayCell) string {
	day := fmt.Sprintf("%2d", c.Date.Day)
	if !c.InCurrentMonth {
		day = r.style(r.muted, day)
	}
	lines := []string{day}
	for _, e := range c.Entries {
		lines = append(lines, r.track(e.ColorIndex, e.ID()+" "+Minutes(e.TotalMinutes)))
	}
	return strings.Join(lines, "\n")
}

// List renders the flat editable plan, one line per entry.
func (r *Renderer) List(p schedule.EditablePlan) string {
	if p.Len() == 0 {
		return r.style(r.muted, "no entries") + "\n"
	}
	var b strings.Builder
	for _, e := range p.Entries {
		title := e.TrackTitle
		if title == "" {
			title = e.TrackID
		}
		fmt.Fprintf(&b, "%s %s  %-12s %s, %s day  %s (%d %s)\n",
			e.Date.Weekday().String()[:3], e.Date.Key(),
			r.track(e.ColorIndex, e.ID()),
			title, humanize.Ordinal(e.DayIndex),
			Minutes(e.TotalMinutes), len(e.Sessions), plural(len(e.Sessions), "session"))
	}
	return b.String()
}

// Load renders weekly load rows with their hour-bound flags.
func (r *Renderer) Load(rows []sequencer.WeekLoad) string {
	var b strings.Builder
	for _, w := range rows {
		fmt.Fprintf(&b, "week of %s: %d %s, %s", w.Monday.Key(), w.StudyDays, plural(w.StudyDays, "day"), Minutes(w.Minutes))
		switch {
		case w.UnderMin:
			b.WriteString("  " + r.style(r.warn, "under minimum"))
		case w.OverMax:
			b.WriteString("  " + r.style(r.warn, "over maximum"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Span renders a one-line summary of an assignment's range.
func (r *Renderer) Span(s sequencer.Span) string {
	if s.StudyDays == 0 {
		return "empty plan\n"
	}
	return fmt.Sprintf("%s study %s over %s %s (%s to %s), %s total\n",
		humanize.Comma(int64(s.StudyDays)), plural(s.StudyDays, "day"),
		humanize.Comma(int64(s.Days())), plural(s.Days(), "calendar day"),
		s.First.Key(), s.Last.Key(), Minutes(s.Minutes))
}

// Snapshots renders the stored snapshot index, newest first as given.
func (r *Renderer) Snapshots(recs []storage.Record, now time.Time) string {
	if len(recs) == 0 {
		return r.style(r.muted, "no snapshots") + "\n"
	}
	var b strings.Builder
	for _, rec := range recs {
		id := rec.SnapshotID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&b, "%-20s %s  saved %s\n", rec.Key, id,
			r.style(r.muted, humanize.RelTime(rec.CreatedAt, now, "ago", "from now")))
	}
	return b.String()
}

// Agenda renders the entries scheduled on one day.
func (r *Renderer) Agenda(day calendar.Date, entries []plan.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.style(r.title, day.Weekday().String()), day.Key())
	if len(entries) == 0 {
		if day.IsSunday() {
			b.WriteString("  rest day\n")
		} else {
			b.WriteString("  nothing scheduled\n")
		}
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s %s\n", r.track(e.ColorIndex, e.ID()), Minutes(e.TotalMinutes))
		for _, s := range e.Sessions {
			fmt.Fprintf(&b, "    - %s / %s (%s, %s)\n", s.CourseTitle, s.LessonTitle, s.Type, Minutes(s.DurationMinutes))
		}
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
