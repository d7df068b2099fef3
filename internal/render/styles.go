// Package render turns planner values into terminal text: the four-week
// month grid, the flat editable list, weekly load rows, the stored
// snapshot index and a day's agenda.
package render

import "github.com/charmbracelet/lipgloss"

// Track colours, picked by Entry.ColorIndex modulo the palette size.
var palette = []lipgloss.Color{
	lipgloss.Color("#7C3AED"),
	lipgloss.Color("#06B6D4"),
	lipgloss.Color("#F59E0B"),
	lipgloss.Color("#10B981"),
	lipgloss.Color("#EF4444"),
	lipgloss.Color("#EC4899"),
	lipgloss.Color("#3B82F6"),
	lipgloss.Color("#84CC16"),
}

var (
	colorMuted = lipgloss.Color("#6B7280")
	colorWarn  = lipgloss.Color("#F59E0B")
)

// Renderer holds the styles for one output. A plain renderer emits no
// escape sequences.
type Renderer struct {
	plain bool

	title  lipgloss.Style
	header lipgloss.Style
	muted  lipgloss.Style
	warn   lipgloss.Style
	cell   lipgloss.Style
}

const cellWidth = 14

// New returns a Renderer. With color false every style is a no-op apart
// from layout.
func New(color bool) *Renderer {
	r := &Renderer{plain: !color}
	r.cell = lipgloss.NewStyle().Width(cellWidth)
	if !color {
		return r
	}
	r.title = lipgloss.NewStyle().Bold(true)
	r.header = lipgloss.NewStyle().Bold(true).Foreground(palette[1])
	r.muted = lipgloss.NewStyle().Foreground(colorMuted)
	r.warn = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	return r
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// track colours text with the palette entry for colorIndex.
func (r *Renderer) track(colorIndex int, text string) string {
	if r.plain || colorIndex < 0 {
		return text
	}
	return lipgloss.NewStyle().Foreground(palette[colorIndex%len(palette)]).Render(text)
}
