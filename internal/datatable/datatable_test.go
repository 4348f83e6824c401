package datatable

import (
	"fmt"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/kumss/console/internal/api"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

type notice struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	Priority *string `json:"priority"`
}

func strp(s string) *string { return &s }

func notices(n int) []notice {
	out := make([]notice, n)
	for i := range out {
		out[i] = notice{ID: i + 1, Title: fmt.Sprintf("Notice %d", i+1)}
	}
	return out
}

var noticeColumns = []Column[notice]{
	{Key: "id", Label: "ID", Sortable: true},
	{Key: "title", Label: "Title", Sortable: true},
	{Key: "priority", Label: "Priority"},
}

type recorder struct {
	calls []FilterState
}

func (r *recorder) onChange(f FilterState) tea.Cmd {
	r.calls = append(r.calls, f)
	return nil
}

func newTable(rec *recorder, data *api.Page[notice], filters FilterState) *Model[notice] {
	m := New(Props[notice]{
		Title:           "Notices",
		Data:            data,
		Columns:         noticeColumns,
		Filters:         filters,
		OnFiltersChange: rec.onChange,
		OnRefresh:       func() tea.Cmd { return nil },
	})
	m.SetSize(100, 30)
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestScenarioFirstPageOfTwo(t *testing.T) {
	rec := &recorder{}
	data := &api.Page[notice]{Count: 25, Next: strp("http://x/api/v1/notices/?page=2"), Results: notices(20)}
	m := newTable(rec, data, FilterState{KeyPage: 1, KeyPageSize: 20})

	require.False(t, m.CanPrev())
	require.True(t, m.CanNext())
	require.Equal(t, "Page 1 of 2 (25 total)", m.Footer())
	require.Contains(t, m.View(), "Page 1 of 2 (25 total)")

	require.Nil(t, m.PrevPage())
	require.Empty(t, rec.calls)

	m.NextPage()
	require.Len(t, rec.calls, 1)
	require.Equal(t, 2, rec.calls[0].Page())
}

func TestScenarioTypingSearchEmitsOnce(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, &api.Page[notice]{Count: 1, Results: notices(1)}, FilterState{KeyPage: 2, "status": "active"})

	m.Update(keyRunes("/"))
	require.True(t, m.Searching())
	require.True(t, m.Capturing())
	m.Update(keyRunes("alice"))
	require.Empty(t, rec.calls)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, rec.calls, 1)
	require.Equal(t, FilterState{KeyPage: 1, "status": "active", KeySearch: "alice"}, rec.calls[0])
	require.False(t, m.Capturing())
}

func TestEscapeAbandonsSearch(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, nil, FilterState{KeyPage: 1, KeySearch: "bob"})
	m.Update(keyRunes("/"))
	m.Update(keyRunes("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Empty(t, rec.calls)
	require.Contains(t, m.View(), "/ bob")
}

func TestEveryChangeResetsPage(t *testing.T) {
	ops := map[string]func(m *Model[notice]) tea.Cmd{
		"search":    func(m *Model[notice]) tea.Cmd { return m.SetSearch("exam") },
		"filter":    func(m *Model[notice]) tea.Cmd { return m.SetFilter("status", "draft") },
		"clear":     func(m *Model[notice]) tea.Cmd { return m.SetFilter("status", nil) },
		"page size": func(m *Model[notice]) tea.Cmd { return m.SetPageSize(50) },
		"sort":      func(m *Model[notice]) tea.Cmd { return m.ToggleSort("title") },
	}
	for name, op := range ops {
		for _, page := range []int{1, 2, 7, 40} {
			rec := &recorder{}
			m := newTable(rec, &api.Page[notice]{Count: 900, Results: notices(20)}, FilterState{KeyPage: page, "status": "active"})
			op(m)
			require.Len(t, rec.calls, 1, name)
			require.Equal(t, 1, rec.calls[0].Page(), "%s from page %d", name, page)
		}
	}
}

func TestEmptySearchIsOmitted(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, nil, FilterState{KeyPage: 3, KeySearch: "old"})
	m.SetSearch("   ")
	require.Len(t, rec.calls, 1)
	_, present := rec.calls[0][KeySearch]
	require.False(t, present)
	require.NotContains(t, rec.calls[0].Query(), KeySearch)
}

func TestRenderStatesAreExclusive(t *testing.T) {
	full := &api.Page[notice]{Count: 2, Results: notices(2)}
	empty := &api.Page[notice]{}
	cases := []struct {
		loading bool
		err     string
		data    *api.Page[notice]
		want    State
	}{
		{true, "boom", full, StateLoading},
		{true, "", nil, StateLoading},
		{false, "boom", full, StateError},
		{false, "boom", nil, StateError},
		{false, "", empty, StateEmpty},
		{false, "", nil, StateEmpty},
		{false, "", full, StatePopulated},
	}
	for _, tc := range cases {
		m := New(Props[notice]{Columns: noticeColumns, Loading: tc.loading, Err: tc.err, Data: tc.data})
		require.Equal(t, tc.want, m.RenderState(), "%+v", tc)

		view := m.View()
		require.Equal(t, tc.want == StateLoading, strings.Contains(view, "Loading..."), tc.want.String())
		require.Equal(t, tc.want == StateError, strings.Contains(view, "Error: boom"), tc.want.String())
		require.Equal(t, tc.want == StateEmpty, strings.Contains(view, "No records found."), tc.want.String())
		require.Equal(t, tc.want == StatePopulated, strings.Contains(view, "Notice 1"), tc.want.String())
	}
}

func TestMissingFieldRendersDash(t *testing.T) {
	require.Equal(t, Missing, CellText(noticeColumns[2], notice{ID: 1}))
	require.Equal(t, "high", CellText(noticeColumns[2], notice{Priority: strp("high")}))

	recCol := Column[api.Record]{Key: "college.name"}
	require.Equal(t, Missing, CellText(recCol, api.Record{"id": 1.0}))
	require.Equal(t, Missing, CellText(recCol, api.Record{"college": nil}))
	require.Equal(t, "Main", CellText(recCol, api.Record{"college": map[string]any{"name": "Main"}}))

	rendered := Column[notice]{Key: "title", Render: func(n notice) string { return strings.ToUpper(n.Title) }}
	require.Equal(t, "EXAM", CellText(rendered, notice{Title: "exam"}))
}

func TestSortToggleReturnsToStart(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, &api.Page[notice]{Count: 2, Results: notices(2)}, nil)

	m.ToggleSort("title")
	key, desc := m.SortState()
	require.Equal(t, "title", key)
	require.False(t, desc)

	m.ToggleSort("title")
	_, desc = m.SortState()
	require.True(t, desc)

	m.ToggleSort("title")
	_, desc = m.SortState()
	require.False(t, desc)

	require.Equal(t, []string{"title", "-title", "title"}, []string{
		rec.calls[0].Ordering(), rec.calls[1].Ordering(), rec.calls[2].Ordering(),
	})

	m.ToggleSort("id")
	key, desc = m.SortState()
	require.Equal(t, "id", key)
	require.False(t, desc)
}

func TestSortIgnoresUnsortableColumns(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, nil, nil)
	require.Nil(t, m.ToggleSort("priority"))
	require.Nil(t, m.ToggleSort("nope"))
	require.Empty(t, rec.calls)
	key, _ := m.SortState()
	require.Empty(t, key)
}

func TestFooterMatchesPageCount(t *testing.T) {
	for _, size := range PageSizes {
		for _, count := range []int{0, 1, 19, 20, 21, 99, 100, 101, 1000} {
			m := New(Props[notice]{
				Columns: noticeColumns,
				Data:    &api.Page[notice]{Count: count},
				Filters: FilterState{KeyPage: 1, KeyPageSize: size},
			})
			want := (count + size - 1) / size
			if want < 1 {
				want = 1
			}
			require.Equal(t, fmt.Sprintf("Page 1 of %d (%d total)", want, count), m.Footer())
		}
	}
}

func TestPageSizeKeysStepThroughChoices(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, nil, FilterState{KeyPage: 4})
	m.Update(keyRunes("+"))
	require.Len(t, rec.calls, 1)
	require.Equal(t, 50, rec.calls[0].PageSize())
	require.Equal(t, 1, rec.calls[0].Page())

	require.Nil(t, m.SetPageSize(30))
	require.Len(t, rec.calls, 1)
}

func TestFilterPanelNeedsConfig(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, nil, nil)
	m.Update(keyRunes("f"))
	require.False(t, m.FiltersVisible())

	props := m.Props()
	props.FilterConfig = []FilterDescriptor{
		{Name: "priority", Label: "Priority", Type: FilterSelect, Options: []Option{{Value: "high", Label: "High"}, {Value: "low", Label: "Low"}}},
		{Name: "is_published", Label: "Published", Type: FilterCheckbox},
	}
	m.SetProps(props)
	m.Update(keyRunes("f"))
	require.True(t, m.FiltersVisible())

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, rec.calls, 1)
	require.Equal(t, "high", rec.calls[0]["priority"])
	require.Equal(t, 1, rec.calls[0].Page())

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, rec.calls, 2)
	require.Equal(t, true, rec.calls[1]["is_published"])
}

func TestSelectFilterWrapsToAll(t *testing.T) {
	d := FilterDescriptor{Name: "priority", Type: FilterSelect, Options: []Option{{Value: "high"}, {Value: "low"}}}
	m := New(Props[notice]{FilterConfig: []FilterDescriptor{d}, Filters: FilterState{KeyPage: 1, "priority": "low"}})
	require.Nil(t, m.stepOption(d, 1))
	require.Equal(t, "high", m.stepOption(d, -1))
}

func TestRowClickOnlyWhenProvided(t *testing.T) {
	rec := &recorder{}
	data := &api.Page[notice]{Count: 3, Results: notices(3)}
	m := newTable(rec, data, nil)
	require.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	require.NotContains(t, m.View(), "▶")

	var opened []notice
	props := m.Props()
	props.OnRowClick = func(n notice) tea.Cmd {
		opened = append(opened, n)
		return nil
	}
	m.SetProps(props)
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []notice{{ID: 2, Title: "Notice 2"}}, opened)
	require.Contains(t, m.View(), "▶")
}

func TestAddOnlyWhenProvided(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, nil, nil)
	require.Nil(t, m.Add())
	require.NotContains(t, m.View(), "New notice")

	added := 0
	props := m.Props()
	props.AddButtonLabel = "New notice"
	props.OnAdd = func() tea.Cmd { added++; return nil }
	m.SetProps(props)
	m.Update(keyRunes("a"))
	require.Equal(t, 1, added)
	require.Contains(t, m.View(), "New notice")
}

func TestFilterStateCanonicalKey(t *testing.T) {
	a := FilterState{}
	b := FilterState{}
	keys := []string{"status", "college", KeyPage, KeySearch, "is_active"}
	vals := []any{"active", 4, 2, "x", true}
	for i := range keys {
		a[keys[i]] = vals[i]
		b[keys[len(keys)-1-i]] = vals[len(keys)-1-i]
	}
	a["dropped"] = nil
	require.Equal(t, a.CanonicalKey(), b.CanonicalKey())
	require.Equal(t, "college=4&is_active=true&page=2&search=x&status=active", a.CanonicalKey())
}

func TestWithDoesNotMutate(t *testing.T) {
	f := FilterState{KeyPage: 3}
	g := f.Reset(KeySearch, "x")
	require.Equal(t, FilterState{KeyPage: 3}, f)
	require.Equal(t, FilterState{KeyPage: 1, KeySearch: "x"}, g)
}

func TestValidateFilters(t *testing.T) {
	require.NoError(t, ValidateFilters([]FilterDescriptor{
		{Name: "status", Type: FilterSelect, Options: []Option{{Value: "a"}}},
		{Name: "venue", Type: FilterText},
		{Name: "is_active", Type: FilterCheckbox},
	}))
	require.Error(t, ValidateFilters([]FilterDescriptor{{Name: "status", Type: FilterSelect}}))
	require.Error(t, ValidateFilters([]FilterDescriptor{{Name: "venue", Type: FilterText, Options: []Option{{Value: "a"}}}}))
	require.Error(t, ValidateFilters([]FilterDescriptor{{Name: "page", Type: FilterText}}))
	require.Error(t, ValidateFilters([]FilterDescriptor{{Name: "x", Type: "radio"}}))
}

func TestValidateColumns(t *testing.T) {
	require.NoError(t, ValidateColumns(noticeColumns))
	require.Error(t, ValidateColumns([]Column[notice]{{Key: "id"}, {Key: "id"}}))
	require.Error(t, ValidateColumns([]Column[notice]{{Key: " "}}))
}

func TestLookupPaths(t *testing.T) {
	type college struct {
		Name string `json:"name"`
	}
	type user struct {
		College *college `json:"college"`
		Tags    []string
	}
	u := user{College: &college{Name: "North"}, Tags: []string{"a", "b"}}

	v, ok := Lookup(u, "college.name")
	require.True(t, ok)
	require.Equal(t, "North", v)

	v, ok = Lookup(u, "tags.1")
	require.True(t, ok)
	require.Equal(t, "b", v)

	_, ok = Lookup(user{}, "college.name")
	require.False(t, ok)
	_, ok = Lookup(u, "tags.9")
	require.False(t, ok)
}

func TestClearedOrderingClearsSortMarker(t *testing.T) {
	rec := &recorder{}
	m := newTable(rec, &api.Page[notice]{Count: 2, Results: notices(2)}, FilterState{KeyPage: 1, KeyOrdering: "-title"})
	key, desc := m.SortState()
	require.Equal(t, "title", key)
	require.True(t, desc)
	require.Contains(t, m.View(), "sort: title")

	m.SetProps(Props[notice]{
		Data:            &api.Page[notice]{Count: 2, Results: notices(2)},
		Columns:         noticeColumns,
		Filters:         FilterState{KeyPage: 1},
		OnFiltersChange: rec.onChange,
	})
	key, desc = m.SortState()
	require.Empty(t, key)
	require.False(t, desc)
	require.NotContains(t, m.View(), "sort: title")
}
