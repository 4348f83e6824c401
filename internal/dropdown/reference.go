// Package dropdown implements reference fields: a searchable select over
// records of one entity kind, loaded from the backend and narrowed by a
// debounced server-side search as the user types.
package dropdown

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/widgets"
)

const (
	// InitialPageSize caps the candidates loaded when the field mounts.
	InitialPageSize = 100
	// SearchPageSize caps the candidates returned for a typed query.
	SearchPageSize = 20
	// Debounce is how long typing must pause before a search is sent.
	Debounce = 300 * time.Millisecond

	visibleOptions = 8
)

var (
	labelStyle    = lipgloss.NewStyle().Foreground(widgets.ColorText).Bold(true)
	valueStyle    = lipgloss.NewStyle().Foreground(widgets.ColorText)
	mutedStyle    = lipgloss.NewStyle().Foreground(widgets.ColorSubtle)
	hintStyle     = lipgloss.NewStyle().Foreground(widgets.ColorMuted).Italic(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(widgets.ColorAccent).Bold(true)
	errStyle      = lipgloss.NewStyle().Foreground(widgets.ColorError)
	disabledStyle = lipgloss.NewStyle().Foreground(widgets.ColorBorder)
)

// Source lists candidates; api.Resource[T].List satisfies it.
type Source[T any] func(ctx context.Context, q url.Values) (*api.Page[T], error)

// Resolver fetches one record by id, used to label a preset value that
// is not among the loaded candidates.
type Resolver[T any] func(ctx context.Context, id string) (T, error)

type loadedMsg struct {
	id      string
	version int
	query   string
	options []Option
	count   int
	err     error
}

type debounceMsg struct {
	id      string
	version int
}

type resolvedMsg struct {
	id     string
	value  string
	option Option
}

// Config is the caller-facing part of a reference field.
type Config struct {
	Label       string
	Placeholder string
	Params      map[string]string
	ShowLabel   bool
	Required    bool
	Disabled    bool
	OnChange    func(value string) tea.Cmd
}

// Reference is a dropdown over one entity kind.
type Reference[T any] struct {
	Config
	Err string

	id      string
	kind    Kind[T]
	source  Source[T]
	resolve Resolver[T]
	ctx     context.Context
	cancel  context.CancelFunc

	sel      *Select
	spinner  spinner.Model
	value    string
	current  Option
	loading  bool
	loadErr  string
	count    int
	open     bool
	version  int
	searched string
	width    int
}

// NewReference builds a field for kind. Candidates load on Init; nothing
// is shared between instances.
func NewReference[T any](ctx context.Context, kind Kind[T], source Source[T], resolve Resolver[T], cfg Config) *Reference[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Reference[T]{
		Config:  cfg,
		id:      uuid.NewString(),
		kind:    kind,
		source:  source,
		resolve: resolve,
		ctx:     ctx,
		sel:     NewSelect(nil),
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		width:   40,
	}
}

// Kind returns the kind name, e.g. "user".
func (r *Reference[T]) Kind() string { return r.kind.Name }

// Value returns the picked id, "" when empty.
func (r *Reference[T]) Value() string { return r.value }

// Display returns the label of the picked record.
func (r *Reference[T]) Display() string {
	if r.value == "" {
		return ""
	}
	if r.current.Value == r.value && r.current.Label != "" {
		return r.current.Label
	}
	return "#" + r.value
}

// SetValue presets the field without emitting OnChange. label may be
// empty; it is filled in once candidates load or the record resolves.
func (r *Reference[T]) SetValue(value, label string) tea.Cmd {
	r.value = strings.TrimSpace(value)
	r.current = Option{Value: r.value, Label: label}
	if r.value == "" {
		return nil
	}
	if opt, ok := r.sel.Find(r.value); ok {
		r.current = opt
		return nil
	}
	if label == "" && !r.loading {
		return r.resolveCmd(r.value)
	}
	return nil
}

// SetError sets the validation message shown under the field.
func (r *Reference[T]) SetError(msg string) { r.Err = msg }

// SetWidth sets the render width.
func (r *Reference[T]) SetWidth(w int) { r.width = max(20, w) }

// IsOpen reports whether the option list is showing.
func (r *Reference[T]) IsOpen() bool { return r.open }

// Loading reports whether a fetch is outstanding.
func (r *Reference[T]) Loading() bool { return r.loading }

// Options returns the candidates currently listed.
func (r *Reference[T]) Options() []Option { return r.sel.Options() }

// Open shows the option list.
func (r *Reference[T]) Open() {
	if r.Disabled {
		return
	}
	r.open = true
	r.sel.Focus(r.value)
}

// Close hides the option list and forgets the typed query.
func (r *Reference[T]) Close() tea.Cmd {
	r.open = false
	if r.sel.Query() == "" && r.searched == "" {
		return nil
	}
	r.sel.SetQuery("")
	r.sel.SetFiltering(true)
	if r.searched == "" {
		return nil
	}
	// the list holds search results; go back to the initial candidates
	r.version++
	r.searched = ""
	r.loading = true
	return r.fetchCmd(r.version, "")
}

// Release cancels any fetch in flight and drops its result. Called when
// the owning form goes away.
func (r *Reference[T]) Release() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.version++
	r.loading = false
}

// Init loads the first page of candidates.
func (r *Reference[T]) Init() tea.Cmd {
	r.loading = true
	return tea.Batch(r.fetchCmd(r.version, ""), r.spinner.Tick)
}

func (r *Reference[T]) query(search string) url.Values {
	q := url.Values{}
	for k, v := range r.Params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	q.Set("is_active", "true")
	if search == "" {
		q.Set("page_size", fmt.Sprint(InitialPageSize))
	} else {
		q.Set("search", search)
		q.Set("page_size", fmt.Sprint(SearchPageSize))
	}
	return q
}

// fetchCmd cancels the field's previous fetch, if still running, and
// starts one for search.
func (r *Reference[T]) fetchCmd(version int, search string) tea.Cmd {
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancel = cancel
	id, q, source, project := r.id, r.query(search), r.source, r.kind.Project
	return func() tea.Msg {
		defer cancel()
		page, err := source(ctx, q)
		if err != nil {
			return loadedMsg{id: id, version: version, query: search, err: err}
		}
		opts := make([]Option, 0, page.Len())
		seen := make(map[string]struct{}, page.Len())
		for _, row := range page.Results {
			opt := project(row)
			if _, dup := seen[opt.Value]; dup {
				continue
			}
			seen[opt.Value] = struct{}{}
			opts = append(opts, opt)
		}
		return loadedMsg{id: id, version: version, query: search, options: opts, count: page.Count}
	}
}

func (r *Reference[T]) resolveCmd(value string) tea.Cmd {
	if r.resolve == nil {
		return nil
	}
	id, resolve, project, ctx := r.id, r.resolve, r.kind.Project, r.ctx
	return func() tea.Msg {
		rec, err := resolve(ctx, value)
		if err != nil {
			return nil
		}
		return resolvedMsg{id: id, value: value, option: project(rec)}
	}
}

func (r *Reference[T]) debounceCmd(version int) tea.Cmd {
	id := r.id
	return tea.Tick(Debounce, func(time.Time) tea.Msg {
		return debounceMsg{id: id, version: version}
	})
}

// Update handles load results, debounce ticks and keys. Keys are only
// acted on when the owner routes them here, i.e. the field has focus.
func (r *Reference[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.id != r.id || msg.version != r.version {
			return nil
		}
		r.loading = false
		if msg.err != nil {
			r.loadErr = api.Message(msg.err, "request failed")
			return nil
		}
		r.loadErr = ""
		r.count = msg.count
		r.searched = msg.query
		r.sel.SetFiltering(msg.query == "" || msg.query != r.sel.Query())
		r.sel.SetOptions(msg.options)
		if r.value != "" {
			if opt, ok := r.sel.Find(r.value); ok {
				r.current = opt
			} else if r.current.Label == "" && msg.query == "" {
				return r.resolveCmd(r.value)
			}
		}
		return nil
	case resolvedMsg:
		if msg.id == r.id && msg.value == r.value {
			r.current = msg.option
		}
		return nil
	case debounceMsg:
		if msg.id != r.id || msg.version != r.version {
			return nil
		}
		r.loading = true
		return r.fetchCmd(msg.version, strings.TrimSpace(r.sel.Query()))
	case spinner.TickMsg:
		if !r.loading {
			return nil
		}
		var cmd tea.Cmd
		r.spinner, cmd = r.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		return r.handleKey(msg)
	}
	return nil
}

func (r *Reference[T]) handleKey(msg tea.KeyMsg) tea.Cmd {
	if r.Disabled {
		return nil
	}
	if !r.open {
		switch msg.String() {
		case "enter", " ", "down":
			r.Open()
		case "backspace", "delete":
			if r.value != "" && !r.Required {
				return r.pick(Option{})
			}
		}
		return nil
	}

	keyName := msg.String()
	if msg.Type == tea.KeyRunes && len(msg.Runes) > 1 {
		// pasted text arrives as one message
		var cmd tea.Cmd
		for _, ch := range msg.Runes {
			if res := r.sel.HandleKey(string(ch)); res.Action == ActionQueryChanged {
				cmd = r.queryChanged()
			}
		}
		return cmd
	}
	res := r.sel.HandleKey(keyName)
	switch res.Action {
	case ActionSelected:
		closeCmd := r.Close()
		return tea.Batch(r.pick(res.Option), closeCmd)
	case ActionCancelled:
		return r.Close()
	case ActionQueryChanged:
		return r.queryChanged()
	}
	return nil
}

// queryChanged narrows locally right away and schedules the server
// search. Only the tick carrying the latest version fetches.
func (r *Reference[T]) queryChanged() tea.Cmd {
	r.sel.SetFiltering(true)
	r.version++
	return r.debounceCmd(r.version)
}

func (r *Reference[T]) pick(opt Option) tea.Cmd {
	r.value = opt.Value
	r.current = opt
	r.Err = ""
	if r.OnChange == nil {
		return nil
	}
	return r.OnChange(opt.Value)
}

// View renders the field.
func (r *Reference[T]) View() string {
	var lines []string
	if r.ShowLabel && r.Label != "" {
		label := r.Label
		if r.Required {
			label += " *"
		}
		lines = append(lines, labelStyle.Render(label))
	}

	if r.loading && r.sel.Len() == 0 {
		lines = append(lines, r.spinner.View()+" "+mutedStyle.Render(LoadingText(r.kind.Things)))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, r.box())
	if r.open {
		lines = append(lines, r.list()...)
	}
	switch {
	case r.loadErr != "":
		lines = append(lines, errStyle.Render(fmt.Sprintf("Could not load %s: %s", r.kind.Things, r.loadErr)))
	case !r.loading && r.sel.Len() == 0:
		if q := strings.TrimSpace(r.sel.Query()); q != "" {
			lines = append(lines, hintStyle.Render(fmt.Sprintf("No %s match %q", r.kind.Things, q)))
		} else {
			lines = append(lines, hintStyle.Render(EmptyHint(r.kind.Things, r.kind.TypeParams, r.Params)))
		}
	case !r.loading && r.count > r.sel.Len() && r.open && r.sel.Query() == "":
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d of %d shown, type to search", r.sel.Len(), r.count)))
	}
	if r.Err != "" {
		lines = append(lines, errStyle.Render(r.Err))
	}
	return strings.Join(lines, "\n")
}

func (r *Reference[T]) box() string {
	width := r.width - 4
	if r.Disabled {
		text := r.Display()
		if text == "" {
			text = r.placeholder()
		}
		return disabledStyle.Render("  " + widgets.Truncate(text, width))
	}
	if r.open {
		q := r.sel.Query()
		suffix := ""
		if r.loading {
			suffix = " " + r.spinner.View()
		}
		if q == "" {
			return cursorStyle.Render("› ") + mutedStyle.Render(widgets.Truncate("Type to search "+r.kind.Things, width)) + suffix
		}
		return cursorStyle.Render("› ") + valueStyle.Render(widgets.Truncate(q, width)) + suffix
	}
	if r.value == "" {
		return mutedStyle.Render(widgets.PadRight(r.placeholder(), width) + " ▾")
	}
	text := r.Display()
	if r.current.Subtitle != "" {
		text += "  " + mutedStyle.Render(r.current.Subtitle)
	}
	return valueStyle.Render(widgets.PadRight(widgets.Truncate(text, width), width)) + " ▾"
}

func (r *Reference[T]) placeholder() string {
	if r.Placeholder != "" {
		return r.Placeholder
	}
	return "Select " + strings.ReplaceAll(r.kind.Name, "_", " ") + "..."
}

func (r *Reference[T]) list() []string {
	opts := r.sel.Options()
	if len(opts) == 0 {
		return nil
	}
	cursor := r.sel.Cursor()
	start := 0
	if cursor >= visibleOptions {
		start = cursor - visibleOptions + 1
	}
	end := min(len(opts), start+visibleOptions)
	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		opt := opts[i]
		marker := "  "
		style := valueStyle
		if i == cursor {
			marker = cursorStyle.Render("▶ ")
			style = cursorStyle
		}
		line := marker + style.Render(opt.Label)
		if opt.Subtitle != "" {
			line += "  " + mutedStyle.Render(opt.Subtitle)
		}
		out = append(out, widgets.Truncate(line, r.width))
	}
	if more := len(opts) - end; more > 0 {
		out = append(out, mutedStyle.Render(fmt.Sprintf("  … %d more", more)))
	}
	return out
}
