// Package screen builds one admin screen per backend collection from a
// declarative definition: a data table, a detail panel and a create/edit
// form, all fed by the shared query layer.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/config"
	"github.com/kumss/console/internal/datatable"
	"github.com/kumss/console/internal/dropdown"
	"github.com/kumss/console/internal/form"
	"github.com/kumss/console/internal/kumss"
	"github.com/kumss/console/internal/panel"
	"github.com/kumss/console/internal/query"
	"github.com/kumss/console/internal/widgets"
)

var (
	detailKeyStyle = lipgloss.NewStyle().Foreground(widgets.ColorMuted)
	detailValStyle = lipgloss.NewStyle().Foreground(widgets.ColorText)
	errStyle       = lipgloss.NewStyle().Foreground(widgets.ColorError)
	popupStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(widgets.ColorError).
			Padding(1, 2)
)

// Deps are the services a screen needs. They are shared by every screen.
type Deps struct {
	Ctx      context.Context
	API      *api.Client
	Query    *query.Client[api.Record]
	Refs     *dropdown.Registry
	Actor    config.Actor
	Format   Formatter
	PageSize int
}

type viewKeys struct {
	Edit   key.Binding
	Delete key.Binding
	Reload key.Binding
	Close  key.Binding
	Save   key.Binding
	Next   key.Binding
	Cancel key.Binding
}

func defaultViewKeys() viewKeys {
	return viewKeys{
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Save:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// Resource is the generic list + detail + form screen.
type Resource struct {
	def     Definition
	deps    Deps
	res     *api.Resource[api.Record]
	columns []datatable.Column[api.Record]
	details []datatable.Column[api.Record]
	keys    viewKeys

	table  *datatable.Model[api.Record]
	ctrl   panel.Controller
	panel  *panel.Panel
	form   *form.Form
	detail viewport.Model

	filters  datatable.FilterState
	page     *api.Page[api.Record]
	loading  bool
	cached   bool
	stale    bool
	cachedAt time.Time
	err      string
	seq      uint64

	record        api.Record
	recordErr     string
	confirmDelete bool
	deleting      bool

	width  int
	height int
}

// NewResource builds the screen for def. Nothing is fetched until Init.
func NewResource(def Definition, deps Deps) *Resource {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	r := &Resource{
		def:     def,
		deps:    deps,
		res:     kumss.Records(deps.API, def.Resource),
		columns: deps.Format.Columns(def.Columns),
		details: deps.Format.Columns(def.Detail),
		keys:    defaultViewKeys(),
		filters: datatable.NewFilterState(),
		detail:  viewport.New(40, 10),
		width:   100,
		height:  30,
	}
	if deps.PageSize > 0 && deps.PageSize != api.DefaultPageSize {
		r.filters = r.filters.With(datatable.KeyPageSize, deps.PageSize)
	}
	r.panel = panel.New(panel.ParseWidth(def.Width), r.closeView)
	r.table = datatable.New(r.props())
	return r
}

// Name is the definition name, e.g. "notices".
func (r *Resource) Name() string { return r.def.Name }

// Title is the tab label.
func (r *Resource) Title() string { return r.def.Title }

// Filters returns the current filter state.
func (r *Resource) Filters() datatable.FilterState { return r.filters }

// Table exposes the table component.
func (r *Resource) Table() *datatable.Model[api.Record] { return r.table }

// Controller exposes the panel state.
func (r *Resource) Controller() *panel.Controller { return &r.ctrl }

// Form returns the open form, nil in view mode or when closed.
func (r *Resource) Form() *form.Form { return r.form }

// Capturing reports whether keys must stay with this screen.
func (r *Resource) Capturing() bool {
	return r.table.Capturing() || r.ctrl.IsOpen() || r.confirmDelete
}

// Init starts the first fetch.
func (r *Resource) Init() tea.Cmd {
	return tea.Batch(r.table.Init(), r.fetch(), r.sync())
}

// SetSize sets the screen area.
func (r *Resource) SetSize(w, h int) {
	r.width, r.height = w, h
	r.table.SetSize(w, h)
	bw, bh := r.panel.BodySize(w, h)
	r.detail.Width = bw
	r.detail.Height = max(1, bh-1)
	if r.form != nil {
		r.form.SetWidth(bw)
	}
	r.setDetail()
}

func (r *Resource) props() datatable.Props[api.Record] {
	p := datatable.Props[api.Record]{
		Title:             r.def.Title,
		Description:       r.def.Description,
		Data:              r.page,
		Columns:           r.columns,
		Loading:           r.loading && !r.cached,
		Err:               r.err,
		Filters:           r.filters,
		FilterConfig:      r.def.Filters,
		SearchPlaceholder: r.def.SearchPlaceholder,
		OnRefresh:         r.refresh,
		OnRowClick:        r.openRecord,
		OnFiltersChange:   r.setFilters,
	}
	if !r.def.ReadOnly {
		p.AddButtonLabel = r.def.AddLabel
		p.OnAdd = r.startCreate
	}
	if r.cached && r.err == "" {
		p.Status = "cached " + humanize.RelTime(r.cachedAt, r.deps.Format.now(), "ago", "from now")
		if r.stale {
			p.Status += " (stale)"
		}
		if r.loading {
			p.Status += " · refreshing"
		}
	}
	return p
}

// sync pushes screen state into the table and panel shells.
func (r *Resource) sync() tea.Cmd {
	mode, open := r.ctrl.Mode()
	r.panel.Open = open
	r.panel.Mode = mode
	switch {
	case !open:
		r.panel.Title, r.panel.Footer = "", ""
	case mode == panel.ModeCreate:
		r.panel.Title, r.panel.Footer = r.def.Title, ""
	default:
		r.panel.Title = r.recordTitle()
		r.panel.Footer = ""
		if mode == panel.ModeView {
			r.panel.Footer = "e edit · d delete · esc close"
			if r.def.ReadOnly {
				r.panel.Footer = "esc close"
			}
		}
	}
	return r.table.SetProps(r.props())
}

func (r *Resource) recordTitle() string {
	if r.record == nil {
		return "#" + r.ctrl.SelectedID()
	}
	if len(r.columns) > 0 {
		if t := datatable.CellText(r.columns[0], r.record); t != datatable.Missing && t != "" {
			return t
		}
	}
	return "#" + r.record.ID()
}

func (r *Resource) request() query.Request {
	return query.Request{Slot: r.def.Name, Resource: r.def.Resource, Query: r.filters.Query()}
}

// fetch issues the list request for the current filters. The last known
// page for the same key is shown while the request runs.
func (r *Resource) fetch() tea.Cmd {
	req := r.request()
	seq, wait := r.deps.Query.Issue(req)
	r.seq = seq
	r.loading = true
	r.cached = false
	name, q, ctx := r.def.Name, r.deps.Query, r.deps.Ctx
	return tea.Batch(
		func() tea.Msg {
			res, ok := q.Cached(ctx, req)
			if !ok {
				return nil
			}
			return cachedMsg{screen: name, seq: seq, result: res}
		},
		func() tea.Msg {
			return listMsg{screen: name, result: wait()}
		},
	)
}

func (r *Resource) setFilters(next datatable.FilterState) tea.Cmd {
	r.filters = next
	return r.fetch()
}

func (r *Resource) refresh() tea.Cmd {
	return r.fetch()
}

func (r *Resource) openRecord(rec api.Record) tea.Cmd {
	id := rec.ID()
	if err := r.ctrl.OpenView(id); err != nil {
		return toast(slog.LevelWarn, "Cannot open record: "+err.Error())
	}
	r.dropForm()
	r.record = rec
	r.recordErr = ""
	r.confirmDelete = false
	r.setDetail()
	r.detail.GotoTop()
	return r.loadRecord(id)
}

func (r *Resource) loadRecord(id string) tea.Cmd {
	name, res, ctx := r.def.Name, r.res, r.deps.Ctx
	return func() tea.Msg {
		rec, err := res.Get(ctx, id)
		return recordMsg{screen: name, id: id, record: rec, err: err}
	}
}

func (r *Resource) closeView() tea.Cmd {
	if r.ctrl.State() != panel.StateView {
		return nil
	}
	_ = r.ctrl.Cancel()
	r.record = nil
	return nil
}

func (r *Resource) startCreate() tea.Cmd {
	if r.def.ReadOnly {
		return nil
	}
	if err := r.ctrl.OpenCreate(); err != nil {
		return toast(slog.LevelWarn, err.Error())
	}
	r.record = nil
	return r.openForm(nil)
}

func (r *Resource) startEdit() tea.Cmd {
	if r.def.ReadOnly || r.record == nil {
		return nil
	}
	if err := r.ctrl.OpenEdit(); err != nil {
		return toast(slog.LevelWarn, err.Error())
	}
	return r.openForm(r.record)
}

func (r *Resource) openForm(entity api.Record) tea.Cmd {
	props := form.Props{
		Fields:   r.def.Fields,
		Actor:    r.deps.Actor,
		Refs:     r.deps.Refs,
		OnSubmit: r.submit,
		OnCancel: r.cancelForm,
	}
	if entity != nil {
		props.Entity = entity
	}
	r.dropForm()
	r.form = form.New(props)
	bw, _ := r.panel.BodySize(r.width, r.height)
	r.form.SetWidth(bw)
	return r.form.Init()
}

func (r *Resource) dropForm() {
	if r.form != nil {
		r.form.Release()
		r.form = nil
	}
}

func (r *Resource) cancelForm() tea.Cmd {
	if err := r.ctrl.Cancel(); err != nil {
		return nil
	}
	r.dropForm()
	if r.ctrl.State() == panel.StateView {
		r.setDetail()
	} else {
		r.record = nil
	}
	return nil
}

func (r *Resource) submit(values map[string]any) tea.Cmd {
	editing := r.ctrl.State() == panel.StateEdit
	id := r.ctrl.SelectedID()
	r.form.SetLoading(true)
	name, res, q, ctx := r.def.Name, r.res, r.deps.Query, r.deps.Ctx
	return func() tea.Msg {
		var rec api.Record
		var err error
		if editing {
			rec, err = res.Update(ctx, id, values)
		} else {
			rec, err = res.Create(ctx, values)
		}
		if err == nil {
			q.Invalidate(ctx, res.Path())
		}
		return savedMsg{screen: name, editing: editing, record: rec, err: err}
	}
}

func (r *Resource) deleteRecord() tea.Cmd {
	id := r.ctrl.SelectedID()
	r.deleting = true
	name, res, q, ctx := r.def.Name, r.res, r.deps.Query, r.deps.Ctx
	return func() tea.Msg {
		err := res.Delete(ctx, id)
		if err == nil {
			q.Invalidate(ctx, res.Path())
		}
		return deletedMsg{screen: name, id: id, err: err}
	}
}

// Update handles keys and this screen's async results. Messages for
// other screens are ignored.
func (r *Resource) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		r.SetSize(m.Width, m.Height)
	case tea.KeyMsg:
		cmd = r.handleKey(m)
	case cachedMsg:
		if m.screen == r.def.Name && m.seq == r.seq && r.loading && m.result.Page != nil {
			r.page = m.result.Page
			r.cached = true
			r.stale = m.result.Stale
			r.cachedAt = m.result.FetchedAt
			r.err = ""
		}
	case listMsg:
		if m.screen != r.def.Name {
			return nil
		}
		cmd = r.applyList(m.result)
	case recordMsg:
		if m.screen != r.def.Name {
			return nil
		}
		cmd = r.applyRecord(m)
	case savedMsg:
		if m.screen != r.def.Name {
			return nil
		}
		cmd = r.applySaved(m)
	case deletedMsg:
		if m.screen != r.def.Name {
			return nil
		}
		cmd = r.applyDeleted(m)
	default:
		cmds := []tea.Cmd{r.table.Update(msg)}
		if r.form != nil {
			cmds = append(cmds, r.form.Update(msg))
		}
		cmd = tea.Batch(cmds...)
	}
	return tea.Batch(cmd, r.sync())
}

func (r *Resource) applyList(res query.Result[api.Record]) tea.Cmd {
	if !r.deps.Query.Accept(res) || res.Canceled() {
		return nil
	}
	r.loading = false
	r.cached = false
	if res.Err != nil {
		r.err = res.Err.Error()
		return nil
	}
	r.err = ""
	r.page = res.Page
	return nil
}

func (r *Resource) applyRecord(m recordMsg) tea.Cmd {
	if !r.ctrl.IsOpen() || m.id != r.ctrl.SelectedID() {
		return nil
	}
	if m.err != nil {
		if api.IsNotFound(m.err) {
			r.ctrl.Close()
			r.dropForm()
			r.record = nil
			return tea.Batch(toast(slog.LevelWarn, "That record no longer exists."), r.fetch())
		}
		r.recordErr = api.Message(m.err, "Could not load record")
		r.setDetail()
		return nil
	}
	r.record = m.record
	r.recordErr = ""
	r.setDetail()
	return nil
}

func (r *Resource) applySaved(m savedMsg) tea.Cmd {
	if r.form != nil {
		r.form.SetLoading(false)
	}
	if m.err != nil {
		var apiErr *api.Error
		if r.form != nil && errors.As(m.err, &apiErr) && len(apiErr.Fields) > 0 {
			r.form.SetServerErrors(apiErr.Fields)
		}
		return toast(slog.LevelError, api.Message(m.err, "Something went wrong"))
	}
	if err := r.ctrl.SubmitSucceeded(); err != nil {
		return nil
	}
	r.dropForm()
	text := "Created."
	if m.editing {
		text = "Saved."
		r.record = m.record
		r.setDetail()
	} else {
		r.record = nil
	}
	return tea.Batch(toast(slog.LevelInfo, text), r.fetch())
}

func (r *Resource) applyDeleted(m deletedMsg) tea.Cmd {
	r.deleting = false
	r.confirmDelete = false
	if m.err != nil {
		return toast(slog.LevelError, api.Message(m.err, "Something went wrong"))
	}
	if r.ctrl.SelectedID() == m.id {
		r.ctrl.Close()
		r.record = nil
	}
	return tea.Batch(toast(slog.LevelInfo, "Deleted."), r.fetch())
}

func (r *Resource) handleKey(msg tea.KeyMsg) tea.Cmd {
	if r.confirmDelete {
		if r.deleting {
			return nil
		}
		switch msg.String() {
		case "y", "enter":
			return r.deleteRecord()
		case "n", "esc":
			r.confirmDelete = false
		}
		return nil
	}
	switch r.ctrl.State() {
	case panel.StateClosed:
		return r.table.Update(msg)
	case panel.StateCreate, panel.StateEdit:
		if r.form == nil {
			return nil
		}
		return r.form.Update(msg)
	}

	// view mode
	switch {
	case key.Matches(msg, r.keys.Close):
		return r.panel.Update(msg)
	case key.Matches(msg, r.keys.Edit):
		return r.startEdit()
	case key.Matches(msg, r.keys.Delete):
		if !r.def.ReadOnly && r.record != nil {
			r.confirmDelete = true
		}
		return nil
	case key.Matches(msg, r.keys.Reload):
		return r.loadRecord(r.ctrl.SelectedID())
	}
	var cmd tea.Cmd
	r.detail, cmd = r.detail.Update(msg)
	return cmd
}

func (r *Resource) setDetail() {
	if r.record == nil {
		r.detail.SetContent("")
		return
	}
	cols := r.details
	if len(cols) == 0 {
		cols = r.allFields()
	}
	labelWidth := 0
	for _, c := range cols {
		labelWidth = max(labelWidth, lipgloss.Width(c.Label))
	}
	var lines []string
	if r.recordErr != "" {
		lines = append(lines, errStyle.Render(r.recordErr), "")
	}
	valueWidth := max(10, r.detail.Width-labelWidth-2)
	for _, c := range cols {
		value := datatable.CellText(c, r.record)
		wrapped := lipgloss.NewStyle().Width(valueWidth).Render(value)
		for i, line := range strings.Split(wrapped, "\n") {
			label := ""
			if i == 0 {
				label = c.Label
			}
			lines = append(lines, detailKeyStyle.Render(widgets.PadRight(label, labelWidth))+"  "+detailValStyle.Render(line))
		}
	}
	r.detail.SetContent(strings.Join(lines, "\n"))
}

// allFields lists every key of the record, columns first.
func (r *Resource) allFields() []datatable.Column[api.Record] {
	out := append([]datatable.Column[api.Record](nil), r.columns...)
	seen := map[string]bool{}
	for _, c := range out {
		seen[c.Key] = true
	}
	var rest []string
	for k := range r.record {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, datatable.Column[api.Record]{Key: k, Label: humanLabel(k)})
	}
	return out
}

// View renders the table with the panel and any confirmation on top.
func (r *Resource) View() string {
	out := r.table.View()
	if r.ctrl.IsOpen() {
		var body string
		if r.form != nil {
			body = r.form.View()
		} else {
			body = r.detail.View()
		}
		out = r.panel.Render(out, body, r.width, r.height)
	}
	if r.confirmDelete {
		text := fmt.Sprintf("Delete %s?\n\ny delete · n keep", r.recordTitle())
		if r.deleting {
			text = fmt.Sprintf("Deleting %s...", r.recordTitle())
		}
		out = widgets.RenderPopup(out, popupStyle.Render(text), r.width, r.height)
	}
	return out
}

// ShortHelp implements help.KeyMap for the active mode.
func (r *Resource) ShortHelp() []key.Binding {
	switch r.ctrl.State() {
	case panel.StateView:
		if r.def.ReadOnly {
			return []key.Binding{r.keys.Reload, r.keys.Close}
		}
		return []key.Binding{r.keys.Edit, r.keys.Delete, r.keys.Reload, r.keys.Close}
	case panel.StateCreate, panel.StateEdit:
		return []key.Binding{r.keys.Save, r.keys.Next, r.keys.Cancel}
	}
	return r.table.KeyMap().ShortHelp()
}

// FullHelp implements help.KeyMap.
func (r *Resource) FullHelp() [][]key.Binding {
	if r.ctrl.IsOpen() {
		return [][]key.Binding{r.ShortHelp()}
	}
	return r.table.KeyMap().FullHelp()
}
