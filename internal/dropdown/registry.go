package dropdown

import (
	"context"
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kumss/console/internal/kumss"
)

// Field is the kind-independent face of a Reference, used by forms.
type Field interface {
	Init() tea.Cmd
	Update(tea.Msg) tea.Cmd
	View() string
	Kind() string
	Value() string
	Display() string
	SetValue(value, label string) tea.Cmd
	SetError(msg string)
	SetWidth(w int)
	Open()
	Close() tea.Cmd
	IsOpen() bool
	Release()
}

var _ Field = (*Reference[kumss.User])(nil)

// Registry builds reference fields by kind name.
type Registry struct {
	ctx      context.Context
	builders map[string]func(ctx context.Context, cfg Config) Field
}

// NewRegistry wires every kind to its collection on c.
func NewRegistry(ctx context.Context, c *kumss.Client) *Registry {
	r := &Registry{ctx: ctx, builders: map[string]func(context.Context, Config) Field{}}
	register[kumss.User](r, UserKind, c.Users.List, c.Users.Get)
	register[kumss.Event](r, EventKind, c.Events.List, c.Events.Get)
	register[kumss.Notice](r, NoticeKind, c.Notices.List, c.Notices.Get)
	register[kumss.BulkMessage](r, BulkMessageKind, c.BulkMessages.List, c.BulkMessages.Get)
	register[kumss.MessageTemplate](r, MessageTemplateKind, c.MessageTemplates.List, c.MessageTemplates.Get)
	return r
}

func register[T any](r *Registry, kind Kind[T], source Source[T], resolve Resolver[T]) {
	r.builders[kind.Name] = func(ctx context.Context, cfg Config) Field {
		return NewReference(ctx, kind, source, resolve, cfg)
	}
}

// Kinds lists the registered kind names.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.builders))
	for name := range r.builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// New builds a fresh field of kind.
func (r *Registry) New(kind string, cfg Config) (Field, error) {
	build, ok := r.builders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	return build(r.ctx, cfg), nil
}
