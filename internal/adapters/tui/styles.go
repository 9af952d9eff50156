package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"mlboard/internal/core/domain"
)

// cssColors maps the status palette names to terminal colors.
var cssColors = map[string]lipgloss.Color{
	"gray":      lipgloss.Color("#808080"),
	"lightblue": lipgloss.Color("#add8e6"),
	"lime":      lipgloss.Color("#00ff00"),
	"red":       lipgloss.Color("#ff0000"),
	"purple":    lipgloss.Color("#800080"),
	"orange":    lipgloss.Color("#ffa500"),
	"green":     lipgloss.Color("#008000"),
	"gainsboro": lipgloss.Color("#dcdcdc"),
}

var (
	baseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = tabStyle.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	loadingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

// statusBadge renders "name:count" in the color of the status. Unknown
// statuses with a count stay uncolored.
func statusBadge(sc domain.StatusCount) string {
	text := sc.Name + ":" + itoa(sc.Count)
	name, ok := domain.ColorForTaskStatus(sc.Name, sc.Count)
	if !ok {
		return text
	}
	return lipgloss.NewStyle().Foreground(cssColors[name]).Render(text)
}
