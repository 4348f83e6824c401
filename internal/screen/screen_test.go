package screen

import (
	"context"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/config"
	"github.com/kumss/console/internal/datatable"
	"github.com/kumss/console/internal/dropdown"
	"github.com/kumss/console/internal/form"
	"github.com/kumss/console/internal/kumss"
	"github.com/kumss/console/internal/mockapi"
	"github.com/kumss/console/internal/panel"
	"github.com/kumss/console/internal/query"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

var refKinds = []string{"bulk_message", "event", "message_template", "notice", "user"}

func TestBuiltInScreensParse(t *testing.T) {
	defs, err := Load("", refKinds)
	require.NoError(t, err)
	require.Equal(t, []string{
		"notices", "events", "bulk_messages", "message_templates", "users",
		"chats", "exams", "fee_structures", "store_items",
	}, Names(defs))

	notices, ok := Find(defs, "notices")
	require.True(t, ok)
	require.Equal(t, "communication/notices", notices.Resource)
	require.Equal(t, "New notice", notices.AddLabel)
	require.Len(t, notices.Filters, 2)

	_, ok = Find(defs, "library")
	require.False(t, ok)
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"no screens":       "screens: []",
		"missing resource": "screens:\n  - {name: a, columns: [{key: id}]}",
		"no columns":       "screens:\n  - {name: a, resource: x}",
		"bad renderer":     "screens:\n  - {name: a, resource: x, columns: [{key: id, render: sparkline}]}",
		"duplicate column": "screens:\n  - {name: a, resource: x, columns: [{key: id}, {key: id}]}",
		"duplicate screen": "screens:\n  - {name: a, resource: x, columns: [{key: id}]}\n  - {name: a, resource: y, columns: [{key: id}]}",
		"unknown reference": `screens:
  - name: a
    resource: x
    columns: [{key: id}]
    fields: [{name: owner, type: reference, reference: library_card}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), refKinds)
			require.Error(t, err)
		})
	}
}

func TestLoadFromFileNamesThePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "screens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("screens:\n  - {name: a, columns: [{key: id}]}"), 0o600))
	_, err := Load(path, refKinds)
	require.ErrorContains(t, err, path)

	require.NoError(t, os.WriteFile(path, []byte("screens:\n  - {name: rooms, resource: core/rooms, columns: [{key: name}]}"), 0o600))
	defs, err := Load(path, refKinds)
	require.NoError(t, err)
	require.Equal(t, "rooms", defs[0].Title)

	_, err = Load(filepath.Join(dir, "missing.yaml"), refKinds)
	require.Error(t, err)
}

func TestRenderers(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := Formatter{DateFormat: "02 Jan 2006", Location: time.UTC, Now: func() time.Time { return now }}

	require.Equal(t, "05 Mar 2026", f.Render("date", "2026-03-05"))
	require.Equal(t, "05 Mar 2026 14:30", f.Render("datetime", "2026-03-05T14:30:00Z"))
	require.Equal(t, "2 hours ago", f.Render("relative", "2026-03-10T10:00:00Z"))
	require.Equal(t, "yes", f.Render("bool", true))
	require.Equal(t, "no", f.Render("bool", "false"))
	require.Equal(t, "[general notice]", f.Render("badge", "general_notice"))
	require.Equal(t, "1,240", f.Render("count", float64(1240)))
	require.Equal(t, "3", f.Render("count", []any{1, 2, 3}))
	require.Equal(t, datatable.Missing, f.Render("date", nil))
	require.Equal(t, datatable.Missing, f.Render("badge", ""))
	// Unparseable values fall back to their text.
	require.Equal(t, "soon", f.Render("date", "soon"))

	require.True(t, KnownRenderer(""))
	require.False(t, KnownRenderer("sparkline"))
}

func TestColumnsUseRenderersAndLabels(t *testing.T) {
	cols := Formatter{}.Columns([]ColumnDef{
		{Key: "is_active", Render: "bool"},
		{Key: "college.name", Label: "College"},
	})
	require.Equal(t, "Is active", cols[0].Label)
	require.Equal(t, "yes", datatable.CellText(cols[0], api.Record{"is_active": true}))
	require.Equal(t, datatable.Missing, datatable.CellText(cols[0], api.Record{}))
	require.Equal(t, "Main", datatable.CellText(cols[1], api.Record{"college": map[string]any{"name": "Main"}}))
}

// harness runs commands synchronously, feeding results back into the
// screen the way the program loop would.
type harness struct {
	t      *testing.T
	r      *Resource
	store  *mockapi.Store
	toasts []Toast
}

func newHarness(t *testing.T, name string) *harness {
	t.Helper()
	store := mockapi.NewStore(nil)
	for _, c := range mockapi.Collections() {
		store.Register(c)
	}
	require.NoError(t, mockapi.Seed(store))
	srv := httptest.NewServer(mockapi.NewServer(store, mockapi.Options{}))
	t.Cleanup(srv.Close)

	c, err := api.New(srv.URL + mockapi.Prefix)
	require.NoError(t, err)
	q := query.New[api.Record](func(ctx context.Context, resource string, v url.Values) (*api.Page[api.Record], error) {
		return kumss.Records(c, resource).List(ctx, v)
	})
	t.Cleanup(q.Close)
	refs := dropdown.NewRegistry(context.Background(), kumss.NewClient(c))

	defs, err := Load("", refs.Kinds())
	require.NoError(t, err)
	def, ok := Find(defs, name)
	require.True(t, ok)

	r := NewResource(def, Deps{
		API:    c,
		Query:  q,
		Refs:   refs,
		Actor:  config.Actor{UserID: "1", CollegeID: "1"},
		Format: Formatter{Location: time.UTC},
	})
	r.SetSize(140, 40)
	h := &harness{t: t, r: r, store: store}
	h.run(r.Init())
	return h
}

func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(c)
		}
	case nil, cursor.BlinkMsg, spinner.TickMsg:
	case Toast:
		h.toasts = append(h.toasts, msg)
	default:
		h.run(h.r.Update(msg))
	}
}

func (h *harness) key(k string) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	h.run(h.r.Update(msg))
}

func (h *harness) lastToast() Toast {
	h.t.Helper()
	require.NotEmpty(h.t, h.toasts)
	return h.toasts[len(h.toasts)-1]
}

func (h *harness) count() int {
	return h.r.Table().Props().Data.Count
}

func TestResourceLoadsFirstPage(t *testing.T) {
	h := newHarness(t, "notices")
	require.Equal(t, datatable.StatePopulated, h.r.Table().RenderState())
	require.Equal(t, 4, h.count())
	view := h.r.View()
	require.Contains(t, view, "Notices")
	require.Contains(t, view, "Exam timetable published")
	require.Contains(t, view, "[urgent]")
	require.Contains(t, view, "Page 1 of 1 (4 total)")
	require.False(t, h.r.Capturing())
}

func TestFilterAndSortRefetch(t *testing.T) {
	h := newHarness(t, "notices")

	h.run(h.r.Table().SetFilter("priority", "high"))
	require.Equal(t, "high", h.r.Filters().Query().Get("priority"))
	require.Equal(t, 1, h.count())

	h.run(h.r.Table().SetFilter("priority", nil))
	require.Equal(t, 4, h.count())

	h.run(h.r.Table().ToggleSort("title"))
	h.run(h.r.Table().ToggleSort("title"))
	require.Equal(t, "-title", h.r.Filters().Ordering())
	require.Equal(t, "Sports day kit collection", h.r.Table().Props().Data.Results[0]["title"])
}

func TestCachedPageShownWhileRefreshing(t *testing.T) {
	h := newHarness(t, "notices")

	batch, ok := h.r.Table().Refresh()().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 2)

	h.run(batch[0])
	status := h.r.Table().Props().Status
	require.True(t, strings.HasPrefix(status, "cached "), status)
	require.Contains(t, status, "refreshing")
	require.Equal(t, datatable.StatePopulated, h.r.Table().RenderState())

	h.run(batch[1])
	require.Empty(t, h.r.Table().Props().Status)
}

func TestStaleCachedPageIsMarked(t *testing.T) {
	h := newHarness(t, "notices")
	// Start a refresh without running it, so the screen waits on the list.
	h.r.Table().Refresh()()

	h.r.Update(cachedMsg{screen: "notices", seq: h.r.seq, result: query.Result[api.Record]{
		Page:      h.r.page,
		Cached:    true,
		Stale:     true,
		FetchedAt: time.Now().Add(-2 * time.Hour),
	}})
	status := h.r.Table().Props().Status
	require.Contains(t, status, "2 hours ago (stale)")
	require.Contains(t, status, "refreshing")
}

func TestOpenRecordShowsDetail(t *testing.T) {
	h := newHarness(t, "notices")
	h.key("enter")

	require.Equal(t, panel.StateView, h.r.Controller().State())
	require.Equal(t, "1", h.r.Controller().SelectedID())
	require.Equal(t, "high", h.r.record["priority"])
	require.True(t, h.r.Capturing())
	require.Contains(t, h.r.View(), "e edit · d delete · esc close")

	h.key("esc")
	require.Equal(t, panel.StateClosed, h.r.Controller().State())
	require.False(t, h.r.Capturing())
}

func TestOpeningDeletedRecordClosesPanel(t *testing.T) {
	h := newHarness(t, "notices")
	cmd := h.r.Table().Activate()
	require.NoError(t, h.store.Delete(kumss.PathNotices, 1))
	h.run(cmd)

	require.Equal(t, panel.StateClosed, h.r.Controller().State())
	require.Equal(t, "That record no longer exists.", h.lastToast().Text)
	require.Equal(t, 3, h.count())
}

func TestCreateValidatesThenSaves(t *testing.T) {
	h := newHarness(t, "notices")
	h.key("a")
	require.Equal(t, panel.StateCreate, h.r.Controller().State())
	f := h.r.Form()
	require.NotNil(t, f)

	h.run(f.Submit())
	require.Equal(t, form.RequiredMessage, f.Errors()["title"])
	require.Equal(t, panel.StateCreate, h.r.Controller().State())

	f.Set("title", "Lab safety briefing")
	f.Set("content", "All first years meet in lab 2.")
	f.Set("publish_date", "2026-03-12")
	h.run(f.Submit())

	require.Equal(t, panel.StateClosed, h.r.Controller().State())
	require.Nil(t, h.r.Form())
	require.Equal(t, "Created.", h.lastToast().Text)
	require.Equal(t, 5, h.count())

	rec, err := h.store.Get(kumss.PathNotices, 5)
	require.NoError(t, err)
	require.Equal(t, "medium", rec["priority"])
	require.Equal(t, float64(1), rec["created_by"])
	require.Equal(t, float64(1), rec["college"])
	require.Nil(t, rec["event"])
}

func TestServerValidationErrorsStayInForm(t *testing.T) {
	h := newHarness(t, "message_templates")
	h.key("a")
	f := h.r.Form()
	require.NotNil(t, f)

	f.Set("name", "Duplicate")
	f.Set("code", "GENERAL")
	f.Set("message_type", "sms")
	f.Set("content", "hello")
	h.run(f.Submit())

	require.Equal(t, panel.StateCreate, h.r.Controller().State())
	require.Equal(t, "A record with this code already exists.", f.Errors()["code"])
	require.Equal(t, "code: A record with this code already exists.", h.lastToast().Text)
	require.False(t, f.Loading())
}

func TestEditSavesAndReturnsToView(t *testing.T) {
	h := newHarness(t, "notices")
	h.key("enter")
	h.key("e")
	require.Equal(t, panel.StateEdit, h.r.Controller().State())
	f := h.r.Form()
	require.True(t, f.Editing())

	f.Set("title", "Exam timetable revised")
	h.run(f.Submit())

	require.Equal(t, panel.StateView, h.r.Controller().State())
	require.Equal(t, "Saved.", h.lastToast().Text)
	require.Equal(t, "Exam timetable revised", h.r.record["title"])
	require.Equal(t, "Exam timetable revised", h.r.Table().Props().Data.Results[0]["title"])
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, "notices")
	h.key("enter")

	h.key("d")
	require.True(t, h.r.confirmDelete)
	require.Contains(t, h.r.View(), "Delete Exam timetable published?")
	h.key("n")
	require.False(t, h.r.confirmDelete)
	require.Equal(t, panel.StateView, h.r.Controller().State())

	h.key("d")
	h.key("y")
	require.Equal(t, panel.StateClosed, h.r.Controller().State())
	require.Equal(t, "Deleted.", h.lastToast().Text)
	require.Equal(t, 3, h.count())
	_, err := h.store.Get(kumss.PathNotices, 1)
	require.Error(t, err)
}

func TestReadOnlyScreenHasNoAdd(t *testing.T) {
	h := newHarness(t, "notices")
	h.r.def.ReadOnly = true
	h.key("a")
	require.Equal(t, panel.StateClosed, h.r.Controller().State())
}

func TestSnapshotRendersFirstPage(t *testing.T) {
	h := newHarness(t, "events")
	out, err := Snapshot(context.Background(), h.r.def, h.r.deps, 120)
	require.NoError(t, err)
	require.Contains(t, out, "Events")
	require.Contains(t, out, "Sports day")
	require.Contains(t, out, "Peter Mwangi")
	require.Contains(t, out, "4 total")
	// The snapshot slot is forgotten once the page is rendered.
	require.False(t, h.r.deps.Query.Current("snapshot/events", 1))
}
