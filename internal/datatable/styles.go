package datatable

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kumss/console/internal/widgets"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(widgets.ColorAccent).Bold(true)
	descStyle      = lipgloss.NewStyle().Foreground(widgets.ColorMuted)
	mutedStyle     = lipgloss.NewStyle().Foreground(widgets.ColorSubtle)
	actionStyle    = lipgloss.NewStyle().Foreground(widgets.ColorText)
	keyStyle       = lipgloss.NewStyle().Foreground(widgets.ColorAccent).Bold(true)
	headerStyle    = lipgloss.NewStyle().Foreground(widgets.ColorText).Bold(true)
	headerCurStyle = lipgloss.NewStyle().Foreground(widgets.ColorAccent).Bold(true).Underline(true)
	ruleStyle      = lipgloss.NewStyle().Foreground(widgets.ColorBorder)
	cellStyle      = lipgloss.NewStyle().Foreground(widgets.ColorText)
	selectedStyle  = lipgloss.NewStyle().Foreground(widgets.ColorText).Background(widgets.ColorSurface0).Bold(true)
	searchStyle    = lipgloss.NewStyle().Foreground(widgets.ColorAccent)
	filterOnStyle  = lipgloss.NewStyle().Foreground(widgets.ColorSuccess)
	errorStyle     = lipgloss.NewStyle().
			Foreground(widgets.ColorError).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(widgets.ColorError).
			Padding(0, 1)
)
