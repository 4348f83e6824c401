// Package tui is the console's root model: a tab per resource screen, a
// toast line and the key help.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kumss/console/internal/screen"
	"github.com/kumss/console/internal/widgets"
)

// ToastFade is how long a toast stays on the status line.
const ToastFade = 4 * time.Second

var (
	tabStyle       = lipgloss.NewStyle().Foreground(widgets.ColorMuted).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Foreground(widgets.ColorMantle).Background(widgets.ColorAccent).Bold(true).Padding(0, 1)
	infoStyle      = lipgloss.NewStyle().Foreground(widgets.ColorSuccess)
	warnStyle      = lipgloss.NewStyle().Foreground(widgets.ColorWarning)
	errorStyle     = lipgloss.NewStyle().Foreground(widgets.ColorError).Bold(true)
)

// Screen is what the app needs from a tab. *screen.Resource implements it.
type Screen interface {
	Name() string
	Title() string
	Init() tea.Cmd
	Update(tea.Msg) tea.Cmd
	View() string
	SetSize(w, h int)
	Capturing() bool
	help.KeyMap
}

var _ Screen = (*screen.Resource)(nil)

type keyMap struct {
	Next key.Binding
	Prev key.Binding
	Help key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next screen")),
		Prev: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev screen")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// helpKeys joins the active screen's bindings with the global ones.
type helpKeys struct {
	screen help.KeyMap
	global keyMap
}

func (k helpKeys) ShortHelp() []key.Binding {
	return append(k.screen.ShortHelp(), k.global.Next, k.global.Help, k.global.Quit)
}

func (k helpKeys) FullHelp() [][]key.Binding {
	return append(k.screen.FullHelp(), []key.Binding{k.global.Next, k.global.Prev, k.global.Help, k.global.Quit})
}

type fadeMsg struct{ id int }

// App ties the screens together.
type App struct {
	ctx     context.Context
	screens []Screen
	started []bool
	active  int
	keys    keyMap
	help    help.Model

	toast   *screen.Toast
	toastID int
	fade    time.Duration

	width  int
	height int
}

// New builds the app over screens. start names the first tab; unknown
// or empty names select the first screen.
func New(ctx context.Context, screens []Screen, start string) *App {
	a := &App{
		ctx:     ctx,
		screens: screens,
		started: make([]bool, len(screens)),
		keys:    defaultKeyMap(),
		help:    help.New(),
		fade:    ToastFade,
		width:   100,
		height:  30,
	}
	for i, s := range screens {
		if s.Name() == start {
			a.active = i
		}
	}
	return a
}

// Active returns the selected screen, nil when there are none.
func (a *App) Active() Screen {
	if len(a.screens) == 0 {
		return nil
	}
	return a.screens[a.active]
}

// Toast returns the toast on the status line, if any.
func (a *App) Toast() (screen.Toast, bool) {
	if a.toast == nil {
		return screen.Toast{}, false
	}
	return *a.toast, true
}

// Init loads the first screen. Other screens load when first shown.
func (a *App) Init() tea.Cmd {
	return a.start(a.active)
}

func (a *App) start(i int) tea.Cmd {
	if i < 0 || i >= len(a.screens) || a.started[i] {
		return nil
	}
	a.started[i] = true
	return a.screens[i].Init()
}

func (a *App) selectScreen(i int) tea.Cmd {
	if len(a.screens) == 0 {
		return nil
	}
	a.active = (i + len(a.screens)) % len(a.screens)
	return a.start(a.active)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.resize()
		return a, nil
	case screen.Toast:
		return a, a.showToast(m)
	case fadeMsg:
		if m.id == a.toastID {
			a.toast = nil
			a.resize()
		}
		return a, nil
	case tea.KeyMsg:
		return a, a.handleKey(m)
	}
	// Async results carry their screen's name, so every screen sees them
	// and ignores the ones that are not theirs.
	cmds := make([]tea.Cmd, 0, len(a.screens))
	for _, s := range a.screens {
		cmds = append(cmds, s.Update(msg))
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	cur := a.Active()
	if cur == nil {
		if key.Matches(msg, a.keys.Quit) {
			return tea.Quit
		}
		return nil
	}
	if cur.Capturing() {
		return cur.Update(msg)
	}
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit
	case key.Matches(msg, a.keys.Next):
		return a.selectScreen(a.active + 1)
	case key.Matches(msg, a.keys.Prev):
		return a.selectScreen(a.active - 1)
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		a.resize()
		return nil
	}
	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		if r := msg.Runes[0]; r >= '1' && r <= '9' && int(r-'1') < len(a.screens) {
			return a.selectScreen(int(r - '1'))
		}
	}
	return cur.Update(msg)
}

func (a *App) showToast(t screen.Toast) tea.Cmd {
	if strings.TrimSpace(t.Text) == "" {
		return nil
	}
	a.toastID++
	a.toast = &t
	a.resize()
	id := a.toastID
	return tea.Tick(a.fade, func(time.Time) tea.Msg { return fadeMsg{id: id} })
}

// resize gives the screens everything between the tab bar and the
// status line.
func (a *App) resize() {
	a.help.Width = a.width
	h := a.height - 2 - lipgloss.Height(a.statusLine())
	for _, s := range a.screens {
		s.SetSize(a.width, max(5, h))
	}
}

func (a *App) tabs() string {
	parts := make([]string, 0, len(a.screens))
	for i, s := range a.screens {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		if i >= 9 {
			label = s.Title()
		}
		if i == a.active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return widgets.Truncate(lipgloss.JoinHorizontal(lipgloss.Top, parts...), a.width)
}

func (a *App) statusLine() string {
	if a.toast != nil {
		style := infoStyle
		switch {
		case a.toast.Level >= slog.LevelError:
			style = errorStyle
		case a.toast.Level >= slog.LevelWarn:
			style = warnStyle
		}
		return style.Render(widgets.Truncate(a.toast.Text, a.width))
	}
	cur := a.Active()
	if cur == nil {
		return ""
	}
	return a.help.View(helpKeys{screen: cur, global: a.keys})
}

func (a *App) View() string {
	cur := a.Active()
	if cur == nil {
		return "No screens configured.\n"
	}
	return strings.Join([]string{a.tabs(), "", cur.View(), a.statusLine()}, "\n")
}
