package panel

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for events the current state does not
// accept. The controller's state is unchanged when it is returned.
var ErrInvalidTransition = errors.New("invalid panel transition")

// State is the controller state.
type State int

const (
	StateClosed State = iota
	StateView
	StateCreate
	StateEdit
)

func (s State) String() string {
	switch s {
	case StateView:
		return "view"
	case StateCreate:
		return "create"
	case StateEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Event drives the controller.
type Event int

const (
	EventOpenCreate Event = iota
	EventOpenView
	EventOpenEdit
	EventClose
	EventSubmitSucceeded
	EventCancel
)

func (e Event) String() string {
	switch e {
	case EventOpenCreate:
		return "open-create"
	case EventOpenView:
		return "open-view"
	case EventOpenEdit:
		return "open-edit"
	case EventClose:
		return "close"
	case EventSubmitSucceeded:
		return "submit-succeeded"
	default:
		return "cancel"
	}
}

// transitions is the whole view/create/edit lifecycle. A missing pair is
// an invalid transition.
var transitions = map[State]map[Event]State{
	StateClosed: {
		EventOpenCreate: StateCreate,
		EventOpenView:   StateView,
		EventClose:      StateClosed,
	},
	StateView: {
		EventOpenView: StateView,
		EventOpenEdit: StateEdit,
		EventClose:    StateClosed,
		EventCancel:   StateClosed,
	},
	StateCreate: {
		EventSubmitSucceeded: StateClosed,
		EventCancel:          StateClosed,
		EventClose:           StateClosed,
	},
	StateEdit: {
		EventSubmitSucceeded: StateView,
		EventCancel:          StateView,
		EventClose:           StateClosed,
	},
}

// Next looks up the state ev leads to from s.
func Next(s State, ev Event) (State, bool) {
	next, ok := transitions[s][ev]
	return next, ok
}

// Controller owns the panel lifecycle for one screen: whether the panel
// is open, in which mode, and which record it shows.
type Controller struct {
	state      State
	selectedID string
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// IsOpen reports whether the panel is showing.
func (c *Controller) IsOpen() bool { return c.state != StateClosed }

// SelectedID is the record shown in view or edit; empty otherwise.
func (c *Controller) SelectedID() string { return c.selectedID }

// Mode maps the state to the shell mode. ok is false when closed.
func (c *Controller) Mode() (Mode, bool) {
	switch c.state {
	case StateView:
		return ModeView, true
	case StateCreate:
		return ModeCreate, true
	case StateEdit:
		return ModeEdit, true
	}
	return ModeView, false
}

// Fire applies ev. id is only used by EventOpenView.
func (c *Controller) Fire(ev Event, id string) error {
	next, ok := Next(c.state, ev)
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, c.state)
	}
	if ev == EventOpenView && id == "" {
		return fmt.Errorf("%w: open-view needs a record id", ErrInvalidTransition)
	}
	c.state = next
	switch {
	case ev == EventOpenView:
		c.selectedID = id
	case next == StateClosed, next == StateCreate:
		c.selectedID = ""
	}
	return nil
}

// OpenCreate opens an empty create form.
func (c *Controller) OpenCreate() error { return c.Fire(EventOpenCreate, "") }

// OpenView shows record id, switching records if one is already shown.
func (c *Controller) OpenView(id string) error { return c.Fire(EventOpenView, id) }

// OpenEdit switches the shown record to its edit form.
func (c *Controller) OpenEdit() error { return c.Fire(EventOpenEdit, "") }

// Close closes the panel from any state. Closing a closed panel is a no-op.
func (c *Controller) Close() {
	_ = c.Fire(EventClose, "")
}

// SubmitSucceeded closes after a create and returns to view after an edit.
func (c *Controller) SubmitSucceeded() error { return c.Fire(EventSubmitSucceeded, "") }

// Cancel backs out of a form or closes the view.
func (c *Controller) Cancel() error { return c.Fire(EventCancel, "") }
