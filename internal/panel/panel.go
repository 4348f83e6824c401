// Package panel is the slide-over that hosts a record's detail view or
// its create/edit form, plus the controller that decides which.
package panel

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kumss/console/internal/widgets"
)

// Mode is what the panel currently hosts.
type Mode int

const (
	ModeView Mode = iota
	ModeCreate
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeEdit:
		return "edit"
	default:
		return "view"
	}
}

// Width is the panel size class.
type Width int

const (
	WidthMD Width = iota
	WidthLG
	WidthXL
)

// ParseWidth maps "md", "lg" and "xl"; anything else is md.
func ParseWidth(s string) Width {
	switch s {
	case "lg":
		return WidthLG
	case "xl":
		return WidthXL
	default:
		return WidthMD
	}
}

func (w Width) cells(screen int) int {
	var frac, floor int
	switch w {
	case WidthXL:
		frac, floor = 75, 64
	case WidthLG:
		frac, floor = 60, 52
	default:
		frac, floor = 45, 40
	}
	return min(screen, max(floor, screen*frac/100))
}

// Panel is the shell. The owner keeps one Panel per screen and flips
// Open, Mode and Title on it; the shell itself is never rebuilt, so the
// hosted content keeps its state across mode changes.
type Panel struct {
	Open    bool
	Title   string
	Mode    Mode
	Width   Width
	Footer  string
	OnClose func() tea.Cmd

	close key.Binding
}

// New returns a closed panel.
func New(width Width, onClose func() tea.Cmd) *Panel {
	return &Panel{
		Width:   width,
		OnClose: onClose,
		close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}
}

// Update closes the panel on esc. Closing an already closed panel does
// nothing.
func (p *Panel) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !p.Open || !key.Matches(km, p.close) {
		return nil
	}
	return p.RequestClose()
}

// RequestClose runs OnClose when open.
func (p *Panel) RequestClose() tea.Cmd {
	if !p.Open || p.OnClose == nil {
		return nil
	}
	return p.OnClose()
}

// BodySize is the content area available for a screen of w x h.
func (p *Panel) BodySize(w, h int) (int, int) {
	return max(1, p.Width.cells(w)-4), max(1, h-2)
}

// Render overlays the panel with body on base. base is returned
// unchanged when the panel is closed.
func (p *Panel) Render(base, body string, w, h int) string {
	if !p.Open || w <= 0 || h <= 0 {
		return base
	}
	title := p.Title
	switch p.Mode {
	case ModeCreate:
		title = "New · " + title
	case ModeEdit:
		title = "Edit · " + title
	}
	box := widgets.Pane{
		Title:   title,
		Footer:  p.Footer,
		Content: body,
		Focused: true,
	}.Render(p.Width.cells(w), h)
	return widgets.RenderSlideOver(base, box, w, h)
}
