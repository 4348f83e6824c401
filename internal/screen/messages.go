package screen

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/query"
)

// Toast is a transient notice for the status line.
type Toast struct {
	Level slog.Level
	Text  string
}

func toast(level slog.Level, text string) tea.Cmd {
	return func() tea.Msg { return Toast{Level: level, Text: text} }
}

// listMsg carries a fresh list result for a screen.
type listMsg struct {
	screen string
	result query.Result[api.Record]
}

// cachedMsg carries the last known page while the fresh fetch runs.
type cachedMsg struct {
	screen string
	seq    uint64
	result query.Result[api.Record]
}

type recordMsg struct {
	screen string
	id     string
	record api.Record
	err    error
}

type savedMsg struct {
	screen  string
	editing bool
	record  api.Record
	err     error
}

type deletedMsg struct {
	screen string
	id     string
	err    error
}
