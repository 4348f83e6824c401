package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kumss/console/internal/screen"
)

// LogHandler is a slog.Handler that shows records at or above its level
// as toasts, and passes every record on to next (usually a file
// handler) when one is set.
//
// Records that arrive before SetProgram are not shown. Handlers derived
// with WithAttrs or WithGroup share the program.
type LogHandler struct {
	level slog.Level
	next  slog.Handler
	send  *atomic.Pointer[func(tea.Msg)]
	attrs []slog.Attr
	group string
}

var _ slog.Handler = (*LogHandler)(nil)

// NewLogHandler returns a handler that toasts records at level or above.
// next may be nil.
func NewLogHandler(level slog.Level, next slog.Handler) *LogHandler {
	return &LogHandler{level: level, next: next, send: &atomic.Pointer[func(tea.Msg)]{}}
}

// SetProgram starts delivery to p.
func (h *LogHandler) SetProgram(p *tea.Program) {
	h.SetSender(p.Send)
}

// SetSender starts delivery to fn.
func (h *LogHandler) SetSender(fn func(tea.Msg)) {
	h.send.Store(&fn)
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		err = h.next.Handle(ctx, record)
	}
	if record.Level < h.level {
		return err
	}
	send := h.send.Load()
	if send == nil {
		return err
	}
	(*send)(screen.Toast{Level: record.Level, Text: h.summary(record)})
	return err
}

// summary is "message (key=value, ...)".
func (h *LogHandler) summary(record slog.Record) string {
	var parts []string
	for _, a := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Key, a.Value))
	}
	record.Attrs(func(a slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%s", h.qualify(a.Key), a.Value))
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := h.clone()
	for _, a := range attrs {
		out.attrs = append(out.attrs, slog.Attr{Key: h.qualify(a.Key), Value: a.Value})
	}
	if h.next != nil {
		out.next = h.next.WithAttrs(attrs)
	}
	return out
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := h.clone()
	if out.group == "" {
		out.group = name
	} else {
		out.group += "." + name
	}
	if h.next != nil {
		out.next = h.next.WithGroup(name)
	}
	return out
}

func (h *LogHandler) qualify(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *LogHandler) clone() *LogHandler {
	return &LogHandler{
		level: h.level,
		next:  h.next,
		send:  h.send,
		attrs: append([]slog.Attr(nil), h.attrs...),
		group: h.group,
	}
}
