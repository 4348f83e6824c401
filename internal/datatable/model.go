// Package datatable renders one page of a paginated list with search,
// filters, sorting and pagination controls. It performs no I/O: every
// user intent is reported to the owner through the callbacks in Props,
// usually as a new FilterState.
package datatable

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/widgets"
)

// State is the body the table renders. Exactly one is active at a time.
type State int

const (
	StateLoading State = iota
	StateError
	StateEmpty
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	default:
		return "populated"
	}
}

type focus int

const (
	focusTable focus = iota
	focusSearch
	focusFilters
	focusFilterText
)

// Props is everything the owner passes in.
type Props[T any] struct {
	Title             string
	Description       string
	Data              *api.Page[T]
	Columns           []Column[T]
	Loading           bool
	Err               string
	Filters           FilterState
	FilterConfig      []FilterDescriptor
	SearchPlaceholder string
	AddButtonLabel    string
	// Status is a short note shown next to the footer, e.g. cache age.
	Status string

	OnRefresh       func() tea.Cmd
	OnAdd           func() tea.Cmd
	OnRowClick      func(T) tea.Cmd
	OnFiltersChange func(FilterState) tea.Cmd
}

// Model is the table component.
type Model[T any] struct {
	props Props[T]
	keys  KeyMap

	search     textinput.Model
	filterText textinput.Model
	spinner    spinner.Model

	focus        focus
	sortKey      string
	sortDesc     bool
	showFilters  bool
	filterCursor int
	cursor       int
	offset       int
	colCursor    int
	width        int
	height       int
}

// New builds a table from props.
func New[T any](props Props[T]) *Model[T] {
	search := textinput.New()
	search.Prompt = "/ "
	search.CharLimit = 120

	filterText := textinput.New()
	filterText.Prompt = ""
	filterText.CharLimit = 120

	m := &Model[T]{
		keys:       DefaultKeyMap(),
		search:     search,
		filterText: filterText,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:      80,
		height:     24,
	}
	m.SetProps(props)
	return m
}

// Init starts the spinner.
func (m *Model[T]) Init() tea.Cmd {
	return m.spinner.Tick
}

// Props returns the current props.
func (m *Model[T]) Props() Props[T] {
	return m.props
}

// KeyMap returns the bindings, for help rendering.
func (m *Model[T]) KeyMap() KeyMap {
	return m.keys
}

// SetProps replaces the props. The returned command restarts the spinner
// when loading begins.
func (m *Model[T]) SetProps(p Props[T]) tea.Cmd {
	wasLoading := m.props.Loading
	if p.Filters == nil {
		p.Filters = NewFilterState()
	}
	m.props = p

	if m.focus != focusSearch {
		m.search.SetValue(p.Filters.Search())
	}
	m.search.Placeholder = p.SearchPlaceholder
	if m.search.Placeholder == "" {
		m.search.Placeholder = "Search..."
	}
	// The owner's ordering is the source of truth for the sort marker.
	o := p.Filters.Ordering()
	m.sortKey = strings.TrimPrefix(o, "-")
	m.sortDesc = strings.HasPrefix(o, "-")
	if len(p.FilterConfig) == 0 {
		m.showFilters = false
		if m.focus == focusFilters || m.focus == focusFilterText {
			m.focus = focusTable
		}
	}
	m.filterCursor = clamp(m.filterCursor, 0, len(p.FilterConfig)-1)
	m.colCursor = clamp(m.colCursor, 0, len(p.Columns)-1)
	m.cursor = clamp(m.cursor, 0, len(m.rows())-1)

	if p.Loading && !wasLoading {
		return m.spinner.Tick
	}
	return nil
}

// SetSize sets the render area.
func (m *Model[T]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = max(10, width/3)
	m.filterText.Width = max(10, width/3)
}

// Capturing reports whether a text input has focus, so global keys
// should be passed through.
func (m *Model[T]) Capturing() bool {
	return m.focus == focusSearch || m.focus == focusFilterText
}

// Searching reports whether the search box has focus.
func (m *Model[T]) Searching() bool {
	return m.focus == focusSearch
}

// FiltersVisible reports whether the filter panel is open.
func (m *Model[T]) FiltersVisible() bool {
	return m.showFilters
}

// SortState returns the active sort column and direction.
func (m *Model[T]) SortState() (string, bool) {
	return m.sortKey, m.sortDesc
}

// Cursor returns the selected row index.
func (m *Model[T]) Cursor() int {
	return m.cursor
}

// Selected returns the row under the cursor.
func (m *Model[T]) Selected() (T, bool) {
	var zero T
	rows := m.rows()
	if m.RenderState() != StatePopulated || m.cursor < 0 || m.cursor >= len(rows) {
		return zero, false
	}
	return rows[m.cursor], true
}

func (m *Model[T]) rows() []T {
	if m.props.Data == nil {
		return nil
	}
	return m.props.Data.Results
}

// RenderState picks the body to render: loading wins over error, error
// over empty.
func (m *Model[T]) RenderState() State {
	switch {
	case m.props.Loading:
		return StateLoading
	case m.props.Err != "":
		return StateError
	case len(m.rows()) == 0:
		return StateEmpty
	default:
		return StatePopulated
	}
}

// CanPrev reports whether the backend advertised a previous page.
func (m *Model[T]) CanPrev() bool {
	return m.props.Data.HasPrevious()
}

// CanNext reports whether the backend advertised a next page.
func (m *Model[T]) CanNext() bool {
	return m.props.Data.HasNext()
}

// Footer is the pagination label.
func (m *Model[T]) Footer() string {
	count := 0
	if m.props.Data != nil {
		count = m.props.Data.Count
	}
	f := m.props.Filters
	return fmt.Sprintf("Page %d of %d (%d total)", f.Page(), api.TotalPages(count, f.PageSize()), count)
}

func (m *Model[T]) emit(next FilterState) tea.Cmd {
	if m.props.OnFiltersChange == nil {
		return nil
	}
	return m.props.OnFiltersChange(next)
}

// ToggleSort flips the direction of the active sort column or selects a
// new one ascending. The ordering is reported to the owner so the
// backend sorts; non-sortable keys are ignored.
func (m *Model[T]) ToggleSort(key string) tea.Cmd {
	col, ok := m.column(key)
	if !ok || !col.Sortable {
		return nil
	}
	if m.sortKey == key {
		m.sortDesc = !m.sortDesc
	} else {
		m.sortKey = key
		m.sortDesc = false
	}
	ordering := key
	if m.sortDesc {
		ordering = "-" + key
	}
	return m.emit(m.props.Filters.With(KeyOrdering, ordering).With(KeyPage, 1))
}

// SetSearch commits a search term. An empty term removes the parameter.
func (m *Model[T]) SetSearch(v string) tea.Cmd {
	return m.emit(m.props.Filters.Reset(KeySearch, strings.TrimSpace(v)))
}

// SetFilter sets one named filter; nil or "" clears it.
func (m *Model[T]) SetFilter(name string, v any) tea.Cmd {
	return m.emit(m.props.Filters.Reset(name, v))
}

// SetPageSize switches the page size. Sizes outside PageSizes are ignored.
func (m *Model[T]) SetPageSize(n int) tea.Cmd {
	if indexOf(PageSizes, n) < 0 {
		return nil
	}
	return m.emit(m.props.Filters.With(KeyPageSize, n).With(KeyPage, 1))
}

// PrevPage moves one page back when the backend has one.
func (m *Model[T]) PrevPage() tea.Cmd {
	if !m.CanPrev() {
		return nil
	}
	return m.emit(m.props.Filters.With(KeyPage, max(1, m.props.Filters.Page()-1)))
}

// NextPage moves one page forward when the backend has one.
func (m *Model[T]) NextPage() tea.Cmd {
	if !m.CanNext() {
		return nil
	}
	return m.emit(m.props.Filters.With(KeyPage, m.props.Filters.Page()+1))
}

// ToggleFilters shows or hides the filter panel. It is a no-op without
// filter config.
func (m *Model[T]) ToggleFilters() {
	if len(m.props.FilterConfig) == 0 {
		return
	}
	m.showFilters = !m.showFilters
	if m.showFilters {
		m.focus = focusFilters
	} else {
		m.focus = focusTable
	}
}

// Refresh asks the owner to refetch.
func (m *Model[T]) Refresh() tea.Cmd {
	if m.props.OnRefresh == nil {
		return nil
	}
	return m.props.OnRefresh()
}

// Add asks the owner to open the create flow.
func (m *Model[T]) Add() tea.Cmd {
	if m.props.OnAdd == nil {
		return nil
	}
	return m.props.OnAdd()
}

// Activate opens the row under the cursor when rows are clickable.
func (m *Model[T]) Activate() tea.Cmd {
	if m.props.OnRowClick == nil {
		return nil
	}
	row, ok := m.Selected()
	if !ok {
		return nil
	}
	return m.props.OnRowClick(row)
}

func (m *Model[T]) column(key string) (Column[T], bool) {
	for _, c := range m.props.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// Update handles keys and spinner ticks.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.props.Loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		switch m.focus {
		case focusSearch:
			return m.updateSearch(msg)
		case focusFilters:
			return m.updateFilters(msg)
		case focusFilterText:
			return m.updateFilterText(msg)
		default:
			return m.updateTable(msg)
		}
	}
	return nil
}

func (m *Model[T]) updateTable(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Up):
		m.moveCursor(-1)
	case key.Matches(msg, k.Down):
		m.moveCursor(1)
	case key.Matches(msg, k.Top):
		m.cursor = 0
	case key.Matches(msg, k.Bottom):
		m.cursor = max(0, len(m.rows())-1)
	case key.Matches(msg, k.Left):
		m.colCursor = clamp(m.colCursor-1, 0, len(m.props.Columns)-1)
	case key.Matches(msg, k.Right):
		m.colCursor = clamp(m.colCursor+1, 0, len(m.props.Columns)-1)
	case key.Matches(msg, k.Open):
		return m.Activate()
	case key.Matches(msg, k.Search):
		m.focus = focusSearch
		m.search.SetValue(m.props.Filters.Search())
		m.search.CursorEnd()
		return m.search.Focus()
	case key.Matches(msg, k.Filters):
		m.ToggleFilters()
	case key.Matches(msg, k.Sort):
		if len(m.props.Columns) > 0 {
			return m.ToggleSort(m.props.Columns[m.colCursor].Key)
		}
	case key.Matches(msg, k.NextSort):
		return m.cycleSort()
	case key.Matches(msg, k.PrevPage):
		return m.PrevPage()
	case key.Matches(msg, k.NextPage):
		return m.NextPage()
	case key.Matches(msg, k.Smaller):
		return m.stepPageSize(-1)
	case key.Matches(msg, k.Larger):
		return m.stepPageSize(1)
	case key.Matches(msg, k.Refresh):
		return m.Refresh()
	case key.Matches(msg, k.Add):
		return m.Add()
	}
	return nil
}

func (m *Model[T]) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.focus = focusTable
		m.search.Blur()
		return m.SetSearch(m.search.Value())
	case tea.KeyEsc:
		m.focus = focusTable
		m.search.Blur()
		m.search.SetValue(m.props.Filters.Search())
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model[T]) updateFilters(msg tea.KeyMsg) tea.Cmd {
	cfg := m.props.FilterConfig
	if len(cfg) == 0 {
		m.focus = focusTable
		return nil
	}
	d := cfg[m.filterCursor]
	switch {
	case key.Matches(msg, m.keys.Up):
		m.filterCursor = clamp(m.filterCursor-1, 0, len(cfg)-1)
	case key.Matches(msg, m.keys.Down):
		m.filterCursor = clamp(m.filterCursor+1, 0, len(cfg)-1)
	case key.Matches(msg, m.keys.Filters):
		m.ToggleFilters()
	case key.Matches(msg, m.keys.Cancel), msg.Type == tea.KeyTab:
		m.focus = focusTable
	case key.Matches(msg, m.keys.Left):
		if d.Type == FilterSelect {
			return m.SetFilter(d.Name, m.stepOption(d, -1))
		}
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Open), msg.String() == " ":
		switch d.Type {
		case FilterSelect:
			return m.SetFilter(d.Name, m.stepOption(d, 1))
		case FilterCheckbox:
			if on, _ := m.props.Filters[d.Name].(bool); on {
				return m.SetFilter(d.Name, nil)
			}
			return m.SetFilter(d.Name, true)
		case FilterText:
			m.focus = focusFilterText
			m.filterText.SetValue(formatValue(m.props.Filters[d.Name]))
			m.filterText.CursorEnd()
			return m.filterText.Focus()
		}
	case msg.String() == "x" || msg.Type == tea.KeyBackspace:
		if m.props.Filters[d.Name] != nil {
			return m.SetFilter(d.Name, nil)
		}
	}
	return nil
}

func (m *Model[T]) updateFilterText(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.focus = focusFilters
		m.filterText.Blur()
		d := m.props.FilterConfig[m.filterCursor]
		return m.SetFilter(d.Name, strings.TrimSpace(m.filterText.Value()))
	case tea.KeyEsc:
		m.focus = focusFilters
		m.filterText.Blur()
		return nil
	}
	var cmd tea.Cmd
	m.filterText, cmd = m.filterText.Update(msg)
	return cmd
}

// stepOption returns the option value dir steps away from the current
// one. Stepping past either end lands on "all" (nil).
func (m *Model[T]) stepOption(d FilterDescriptor, dir int) any {
	cur := formatValue(m.props.Filters[d.Name])
	idx := -1
	for i, o := range d.Options {
		if o.Value == cur && m.props.Filters[d.Name] != nil {
			idx = i
			break
		}
	}
	n := len(d.Options) + 1 // options plus "all"
	pos := (idx + 1 + dir + n) % n
	if pos == 0 {
		return nil
	}
	return d.Options[pos-1].Value
}

func (m *Model[T]) stepPageSize(dir int) tea.Cmd {
	idx := indexOf(PageSizes, m.props.Filters.PageSize())
	if idx < 0 {
		idx = indexOf(PageSizes, api.DefaultPageSize)
	}
	next := clamp(idx+dir, 0, len(PageSizes)-1)
	if next == idx {
		return nil
	}
	return m.SetPageSize(PageSizes[next])
}

func (m *Model[T]) cycleSort() tea.Cmd {
	var sortable []int
	current := -1
	for i, c := range m.props.Columns {
		if !c.Sortable {
			continue
		}
		if c.Key == m.sortKey {
			current = len(sortable)
		}
		sortable = append(sortable, i)
	}
	if len(sortable) == 0 {
		return nil
	}
	next := sortable[(current+1)%len(sortable)]
	m.colCursor = next
	return m.ToggleSort(m.props.Columns[next].Key)
}

func (m *Model[T]) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, len(m.rows())-1)
}

// View renders the table.
func (m *Model[T]) View() string {
	width := max(20, m.width)
	var lines []string

	lines = append(lines, m.headerLine(width))
	if m.props.Description != "" {
		lines = append(lines, descStyle.Render(widgets.Truncate(m.props.Description, width)))
	}
	lines = append(lines, m.searchLine(width))
	if m.showFilters {
		lines = append(lines, m.filterPanel(width)...)
	}
	lines = append(lines, "")

	footer := ""
	if state := m.RenderState(); state == StatePopulated || (state == StateEmpty && m.props.Data != nil) {
		footer = m.footerLine(width)
	}
	bodyHeight := m.height - len(lines)
	if footer != "" {
		bodyHeight -= 2
	}
	lines = append(lines, m.body(width, max(3, bodyHeight))...)
	if footer != "" {
		lines = append(lines, "", footer)
	}
	return strings.Join(lines, "\n")
}

func (m *Model[T]) headerLine(width int) string {
	title := titleStyle.Render(m.props.Title)
	var actions []string
	if m.props.OnRefresh != nil {
		actions = append(actions, keyStyle.Render("r")+" "+actionStyle.Render("Refresh"))
	}
	if m.props.OnAdd != nil {
		label := m.props.AddButtonLabel
		if label == "" {
			label = "Add"
		}
		actions = append(actions, keyStyle.Render("a")+" "+actionStyle.Render(label))
	}
	right := strings.Join(actions, "  ")
	gap := width - ansi.StringWidth(title) - ansi.StringWidth(right)
	if gap < 2 {
		return title
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m *Model[T]) searchLine(width int) string {
	var left string
	switch {
	case m.focus == focusSearch:
		left = m.search.View()
	case m.props.Filters.Search() != "":
		left = searchStyle.Render("/ " + m.props.Filters.Search())
	default:
		left = mutedStyle.Render("/ " + m.search.Placeholder)
	}
	var notes []string
	if keys := m.props.Filters.Keys(); len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+formatValue(m.props.Filters[k]))
		}
		notes = append(notes, filterOnStyle.Render("filters: "+strings.Join(parts, ", ")))
	}
	if m.sortKey != "" {
		arrow := "asc"
		if m.sortDesc {
			arrow = "desc"
		}
		notes = append(notes, mutedStyle.Render("sort: "+m.sortKey+" "+arrow))
	}
	if len(notes) == 0 {
		return left
	}
	return widgets.Truncate(left+"   "+strings.Join(notes, "  "), width)
}

func (m *Model[T]) filterPanel(width int) []string {
	out := []string{ruleStyle.Render(strings.Repeat("─", min(width, 40)))}
	for i, d := range m.props.FilterConfig {
		marker := "  "
		if i == m.filterCursor && (m.focus == focusFilters || m.focus == focusFilterText) {
			marker = keyStyle.Render("› ")
		}
		label := d.Label
		if label == "" {
			label = d.Name
		}
		var value string
		switch {
		case m.focus == focusFilterText && i == m.filterCursor:
			value = m.filterText.View()
		case d.Type == FilterCheckbox:
			value = "[ ]"
			if on, _ := m.props.Filters[d.Name].(bool); on {
				value = filterOnStyle.Render("[x]")
			}
		case d.Type == FilterSelect:
			value = mutedStyle.Render("All")
			if v := m.props.Filters[d.Name]; v != nil {
				value = filterOnStyle.Render(optionLabel(d, formatValue(v)))
			}
		default:
			value = mutedStyle.Render("(any)")
			if v := m.props.Filters[d.Name]; v != nil {
				value = filterOnStyle.Render(formatValue(v))
			}
		}
		out = append(out, widgets.Truncate(marker+fmt.Sprintf("%-18s ", label)+value, width))
	}
	return out
}

func optionLabel(d FilterDescriptor, value string) string {
	for _, o := range d.Options {
		if o.Value == value {
			if o.Label != "" {
				return o.Label
			}
			return o.Value
		}
	}
	return value
}

func (m *Model[T]) body(width, height int) []string {
	switch m.RenderState() {
	case StateLoading:
		return []string{m.spinner.View() + " Loading..."}
	case StateError:
		card := errorStyle.Render("Error: " + m.props.Err)
		lines := strings.Split(card, "\n")
		if m.props.OnRefresh != nil {
			lines = append(lines, mutedStyle.Render("Press r to retry."))
		}
		return lines
	case StateEmpty:
		if s := m.props.Filters.Search(); s != "" {
			return []string{mutedStyle.Render(fmt.Sprintf("No results for %q.", s))}
		}
		return []string{mutedStyle.Render("No records found.")}
	}
	return m.grid(width, height)
}

func (m *Model[T]) grid(width, height int) []string {
	cols := m.props.Columns
	rows := m.rows()
	clickable := m.props.OnRowClick != nil

	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			cells[i][j] = CellText(c, row)
		}
	}

	headers := make([]string, len(cols))
	for j, c := range cols {
		label := c.Label
		if label == "" {
			label = c.Key
		}
		if c.Key == m.sortKey {
			if m.sortDesc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		headers[j] = label
	}

	widths := columnWidths(cols, headers, cells, width-2)

	var out []string
	var head strings.Builder
	head.WriteString("  ")
	for j := range cols {
		text := widgets.PadRight(widgets.Truncate(headers[j], widths[j]), widths[j])
		if j == m.colCursor && m.focus == focusTable {
			head.WriteString(headerCurStyle.Render(text))
		} else {
			head.WriteString(headerStyle.Render(text))
		}
		if j < len(cols)-1 {
			head.WriteString("  ")
		}
	}
	out = append(out, head.String())
	out = append(out, ruleStyle.Render(strings.Repeat("─", min(width, sum(widths)+2*len(cols)))))

	visible := max(1, height-2)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	m.offset = clamp(m.offset, 0, max(0, len(rows)-visible))

	for i := m.offset; i < len(rows) && i < m.offset+visible; i++ {
		var line strings.Builder
		selected := clickable && i == m.cursor
		if selected {
			line.WriteString(keyStyle.Render("▶ "))
		} else {
			line.WriteString("  ")
		}
		for j := range cols {
			text := widgets.PadRight(widgets.Truncate(cells[i][j], widths[j]), widths[j])
			if selected {
				line.WriteString(selectedStyle.Render(text))
			} else {
				line.WriteString(cellStyle.Render(text))
			}
			if j < len(cols)-1 {
				line.WriteString("  ")
			}
		}
		out = append(out, line.String())
	}
	return out
}

func (m *Model[T]) footerLine(width int) string {
	prev := mutedStyle.Render("‹ prev")
	if m.CanPrev() {
		prev = keyStyle.Render("[") + " " + actionStyle.Render("‹ prev")
	}
	next := mutedStyle.Render("next ›")
	if m.CanNext() {
		next = actionStyle.Render("next ›") + " " + keyStyle.Render("]")
	}
	parts := []string{
		actionStyle.Render(m.Footer()),
		prev + "  " + next,
		mutedStyle.Render(fmt.Sprintf("%d per page", m.props.Filters.PageSize())),
	}
	if m.props.Status != "" {
		parts = append(parts, mutedStyle.Render(m.props.Status))
	}
	return widgets.Truncate(strings.Join(parts, "   "), width)
}

// columnWidths sizes columns to their content, then shrinks the widest
// until everything fits in avail.
func columnWidths[T any](cols []Column[T], headers []string, cells [][]string, avail int) []int {
	widths := make([]int, len(cols))
	for j, c := range cols {
		if c.Width > 0 {
			widths[j] = c.Width
			continue
		}
		w := ansi.StringWidth(headers[j])
		for _, row := range cells {
			w = max(w, ansi.StringWidth(row[j]))
		}
		widths[j] = min(w, 40)
	}
	gaps := 2 * max(0, len(cols)-1)
	for sum(widths)+gaps > avail {
		widest := 0
		for j := range widths {
			if widths[j] > widths[widest] {
				widest = j
			}
		}
		if widths[widest] <= 3 {
			break
		}
		widths[widest]--
	}
	return widths
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func indexOf(xs []int, v int) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
