package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Pane is a bordered box with the title set into the top border and an
// optional footer line (key hints) set into the bottom border.
type Pane struct {
	Title   string
	Footer  string
	Content string
	Focused bool
}

func (p Pane) Render(width, height int) string {
	if width <= 0 {
		return ""
	}
	if width < 4 {
		width = 4
	}
	h := max(3, height)

	border := ColorBorder
	if p.Focused {
		border = ColorAccent
	}
	borderStyle := lipgloss.NewStyle().Foreground(border)
	titleStyle := lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	footerStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	innerWidth := width - 2
	contentWidth := innerWidth - 2

	top := borderStyle.Render("╭") + borderLabel(p.Title, innerWidth, borderStyle, titleStyle) + borderStyle.Render("╮")
	bottom := borderStyle.Render("╰") + borderLabel(p.Footer, innerWidth, borderStyle, footerStyle) + borderStyle.Render("╯")

	v := borderStyle.Render("│")
	innerHeight := h - 2
	contentLines := splitLines(p.Content)
	rows := make([]string, 0, h)
	rows = append(rows, top)
	for i := 0; i < innerHeight; i++ {
		line := ""
		if i < len(contentLines) {
			line = contentLines[i]
		}
		rows = append(rows, v+" "+PadRight(line, contentWidth)+" "+v)
	}
	rows = append(rows, bottom)
	return strings.Join(rows, "\n")
}

// borderLabel renders a horizontal border run of width cells with label
// inset one cell from the left.
func borderLabel(label string, width int, border, text lipgloss.Style) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return border.Render(strings.Repeat("─", width))
	}
	labelText := " " + label + " "
	if ansi.StringWidth(labelText) > width-1 {
		labelText = " " + ansi.Truncate(label, max(1, width-3), "") + " "
	}
	dashes := max(0, width-ansi.StringWidth(labelText))
	leftDash := min(1, dashes)
	return border.Render(strings.Repeat("─", leftDash)) +
		text.Render(labelText) +
		border.Render(strings.Repeat("─", dashes-leftDash))
}

func splitLines(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
