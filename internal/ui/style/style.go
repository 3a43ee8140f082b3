// Package style holds the colours and glyphs shared by the logger and the
// command reports.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Accent = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Glyphs.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Dot     = "●"
	Plus    = "+"
	Minus   = "-"
)

// Heading renders a bold accented title for tabular command output.
func Heading(s string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(Accent).Render(s)
}
