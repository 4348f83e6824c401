package dropdown

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/junegunn/fzf/src/util"
)

// Option is one pickable record. Value identifies it uniquely.
type Option struct {
	Value    string
	Label    string
	Subtitle string
}

func (o Option) searchText() string {
	if o.Subtitle == "" {
		return o.Label
	}
	return o.Label + " " + o.Subtitle
}

// Action is what a key press did to the select.
type Action int

const (
	ActionNone Action = iota
	ActionMoved
	ActionQueryChanged
	ActionSelected
	ActionCancelled
)

// Result is returned by HandleKey.
type Result struct {
	Action Action
	Option Option
}

// Select is the searchable list behind every reference dropdown: a query,
// a cursor and the options that match the query.
type Select struct {
	options   []Option
	filtered  []Option
	query     string
	cursor    int
	filtering bool
	slab      *util.Slab
}

// NewSelect builds a select over options.
func NewSelect(options []Option) *Select {
	s := &Select{filtering: true, slab: util.MakeSlab(100*1024, 2048)}
	s.SetOptions(options)
	return s
}

// SetOptions replaces the candidates, keeping the query.
func (s *Select) SetOptions(options []Option) {
	s.options = append([]Option(nil), options...)
	s.rebuild()
}

// SetFiltering turns local narrowing on or off. Results that came back
// from a server-side search are already narrowed and keep server order.
func (s *Select) SetFiltering(on bool) {
	s.filtering = on
	s.rebuild()
}

// SetQuery replaces the query.
func (s *Select) SetQuery(q string) {
	s.query = q
	s.rebuild()
}

func (s *Select) Query() string { return s.query }

func (s *Select) Cursor() int { return s.cursor }

// Len is the number of candidates before narrowing.
func (s *Select) Len() int { return len(s.options) }

// Options returns the options matching the query, best first.
func (s *Select) Options() []Option {
	return append([]Option(nil), s.filtered...)
}

// Find returns the candidate with value.
func (s *Select) Find(value string) (Option, bool) {
	for _, o := range s.options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Focus moves the cursor onto value when it is visible.
func (s *Select) Focus(value string) {
	for i, o := range s.filtered {
		if o.Value == value {
			s.cursor = i
			return
		}
	}
}

// Current returns the option under the cursor.
func (s *Select) Current() (Option, bool) {
	if len(s.filtered) == 0 {
		return Option{}, false
	}
	return s.filtered[min(max(s.cursor, 0), len(s.filtered)-1)], true
}

// HandleKey applies one key press. Printable keys edit the query, so
// movement is bound to the arrow and ctrl keys only.
func (s *Select) HandleKey(keyName string) Result {
	switch keyName {
	case "up", "ctrl+p", "shift+tab":
		if s.cursor > 0 {
			s.cursor--
			return Result{Action: ActionMoved}
		}
		return Result{Action: ActionNone}
	case "down", "ctrl+n", "tab":
		if s.cursor < len(s.filtered)-1 {
			s.cursor++
			return Result{Action: ActionMoved}
		}
		return Result{Action: ActionNone}
	case "enter":
		opt, ok := s.Current()
		if !ok {
			return Result{Action: ActionNone}
		}
		return Result{Action: ActionSelected, Option: opt}
	case "esc":
		return Result{Action: ActionCancelled}
	case "backspace":
		if s.query == "" {
			return Result{Action: ActionNone}
		}
		_, size := utf8.DecodeLastRuneInString(s.query)
		s.SetQuery(s.query[:len(s.query)-size])
		return Result{Action: ActionQueryChanged}
	case "ctrl+u":
		if s.query == "" {
			return Result{Action: ActionNone}
		}
		s.SetQuery("")
		return Result{Action: ActionQueryChanged}
	case "space":
		keyName = " "
	}
	if isPrintableKey(keyName) {
		s.SetQuery(s.query + keyName)
		return Result{Action: ActionQueryChanged}
	}
	return Result{Action: ActionNone}
}

func (s *Select) rebuild() {
	if s.filtering {
		s.filtered = rank(s.options, s.query, s.slab)
	} else {
		s.filtered = append([]Option(nil), s.options...)
	}
	switch {
	case len(s.filtered) == 0:
		s.cursor = 0
	case s.cursor >= len(s.filtered):
		s.cursor = len(s.filtered) - 1
	case s.cursor < 0:
		s.cursor = 0
	}
}

func isPrintableKey(keyName string) bool {
	if utf8.RuneCountInString(keyName) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(keyName)
	return unicode.IsPrint(r) && !strings.ContainsRune("\t\n", r)
}
