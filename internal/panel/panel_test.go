package panel

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

var allStates = []State{StateClosed, StateView, StateCreate, StateEdit}
var allEvents = []Event{EventOpenCreate, EventOpenView, EventOpenEdit, EventClose, EventSubmitSucceeded, EventCancel}

func TestTransitionTable(t *testing.T) {
	want := map[State]map[Event]State{
		StateClosed: {EventOpenCreate: StateCreate, EventOpenView: StateView, EventClose: StateClosed},
		StateView:   {EventOpenView: StateView, EventOpenEdit: StateEdit, EventClose: StateClosed, EventCancel: StateClosed},
		StateCreate: {EventSubmitSucceeded: StateClosed, EventCancel: StateClosed, EventClose: StateClosed},
		StateEdit:   {EventSubmitSucceeded: StateView, EventCancel: StateView, EventClose: StateClosed},
	}
	for _, from := range allStates {
		for _, ev := range allEvents {
			c := &Controller{state: from, selectedID: "7"}
			err := c.Fire(ev, "9")
			next, ok := want[from][ev]
			if !ok {
				require.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", ev, from)
				require.Equal(t, from, c.State(), "state must not change on %s from %s", ev, from)
				require.Equal(t, "7", c.SelectedID())
				continue
			}
			require.NoError(t, err, "%s on %s", ev, from)
			require.Equal(t, next, c.State(), "%s on %s", ev, from)
		}
	}
}

func TestViewEditViewKeepsRecord(t *testing.T) {
	var c Controller
	require.NoError(t, c.OpenView("42"))
	require.NoError(t, c.OpenEdit())
	require.Equal(t, "42", c.SelectedID())
	require.NoError(t, c.Cancel())
	require.Equal(t, StateView, c.State())
	require.NoError(t, c.OpenEdit())
	require.NoError(t, c.SubmitSucceeded())
	require.Equal(t, StateView, c.State())
	require.Equal(t, "42", c.SelectedID())

	require.NoError(t, c.OpenView("43"))
	require.Equal(t, "43", c.SelectedID())
}

func TestCreateLifecycle(t *testing.T) {
	var c Controller
	require.NoError(t, c.OpenCreate())
	mode, open := c.Mode()
	require.True(t, open)
	require.Equal(t, ModeCreate, mode)
	require.Empty(t, c.SelectedID())
	require.ErrorIs(t, c.OpenEdit(), ErrInvalidTransition)
	require.NoError(t, c.SubmitSucceeded())
	require.False(t, c.IsOpen())
}

func TestCloseIsIdempotent(t *testing.T) {
	var c Controller
	c.Close()
	c.Close()
	require.Equal(t, StateClosed, c.State())

	require.NoError(t, c.OpenView("1"))
	c.Close()
	c.Close()
	require.False(t, c.IsOpen())
	require.Empty(t, c.SelectedID())
}

func TestOpenViewNeedsID(t *testing.T) {
	var c Controller
	err := c.OpenView("")
	require.True(t, errors.Is(err, ErrInvalidTransition))
	require.Equal(t, StateClosed, c.State())
}

func TestRenderClosedReturnsBase(t *testing.T) {
	p := New(WidthMD, nil)
	require.Equal(t, "base", p.Render("base", "body", 80, 10))
}

func TestRenderOpenOverlaysRightEdge(t *testing.T) {
	p := New(WidthMD, nil)
	p.Open = true
	p.Title = "Notice"
	base := strings.Repeat(strings.Repeat("x", 100)+"\n", 11) + strings.Repeat("x", 100)

	out := p.Render(base, "hello", 100, 12)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 12)
	require.True(t, strings.HasPrefix(lines[0], "xxxx"))
	require.Contains(t, lines[0], "Notice")
	require.Contains(t, out, "hello")

	for _, mode := range []Mode{ModeEdit, ModeView, ModeEdit} {
		p.Mode = mode
		out = p.Render(base, "hello", 100, 12)
		require.Contains(t, out, "hello")
	}
	require.Contains(t, out, "Edit · Notice")
}

func TestEscRequestsClose(t *testing.T) {
	closed := 0
	p := New(WidthLG, func() tea.Cmd { closed++; return nil })

	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Zero(t, closed, "closed panel ignores esc")

	p.Open = true
	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, 1, closed)
}

func TestWidthClasses(t *testing.T) {
	require.Less(t, WidthMD.cells(160), WidthLG.cells(160))
	require.Less(t, WidthLG.cells(160), WidthXL.cells(160))
	require.Equal(t, 30, WidthXL.cells(30))
	require.Equal(t, WidthXL, ParseWidth("xl"))
	require.Equal(t, WidthMD, ParseWidth(""))
}
