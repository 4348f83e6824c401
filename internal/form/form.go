package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/config"
	"github.com/kumss/console/internal/dropdown"
	"github.com/kumss/console/internal/widgets"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(widgets.ColorText).Bold(true)
	focusStyle   = lipgloss.NewStyle().Foreground(widgets.ColorAccent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(widgets.ColorSubtle)
	errStyle     = lipgloss.NewStyle().Foreground(widgets.ColorError)
	checkedStyle = lipgloss.NewStyle().Foreground(widgets.ColorSuccess)
)

// Props configures a form. A nil Entity means create; otherwise the
// form edits Entity and prefills from it.
type Props struct {
	Entity   map[string]any
	Fields   []FieldSpec
	Actor    config.Actor
	Refs     *dropdown.Registry
	Loading  bool
	OnSubmit func(values map[string]any) tea.Cmd
	OnCancel func() tea.Cmd
}

type field struct {
	spec    FieldSpec
	input   textinput.Model
	area    textarea.Model
	checked bool
	choice  int
	ref     dropdown.Field
	err     string
}

// Form is a bubbletea component. The owner routes keys to it while the
// panel is in create or edit mode.
type Form struct {
	props   Props
	fields  []*field
	order   []int // indexes of focusable fields
	focus   int
	width   int
	general string
}

// New builds a form and prefills it from props.Entity or field defaults.
func New(props Props) *Form {
	f := &Form{props: props, width: 48}
	for _, spec := range props.Fields {
		fl := &field{spec: spec, choice: -1}
		f.fields = append(f.fields, fl)
		if spec.Actor != "" {
			continue
		}
		f.build(fl)
		if !(spec.ReadOnly && f.Editing()) {
			f.order = append(f.order, len(f.fields)-1)
		}
	}
	f.prefill()
	return f
}

func (f *Form) build(fl *field) {
	spec := fl.spec
	switch spec.Kind {
	case KindTextarea:
		ta := textarea.New()
		ta.ShowLineNumbers = false
		ta.Placeholder = spec.Placeholder
		ta.SetHeight(4)
		ta.CharLimit = 0
		ta.Blur()
		fl.area = ta
	case KindCheckbox, KindSelect:
	case KindReference:
		if f.props.Refs != nil {
			ref, err := f.props.Refs.New(spec.Reference, dropdown.Config{
				Label:       spec.label(),
				Placeholder: spec.Placeholder,
				Params:      spec.Params,
				Required:    spec.Required(),
				OnChange: func(string) tea.Cmd {
					fl.err = ""
					return nil
				},
			})
			if err == nil {
				fl.ref = ref
				return
			}
		}
		// no registry: fall back to typing the id
		fallthrough
	default:
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = spec.Placeholder
		in.CharLimit = 500
		fl.input = in
	}
}

// Editing reports whether the form edits an existing record.
func (f *Form) Editing() bool { return f.props.Entity != nil }

func (f *Form) prefill() {
	for _, fl := range f.fields {
		if fl.spec.Actor != "" {
			continue
		}
		raw, label, ok := "", "", false
		if f.Editing() {
			raw, label, ok = entityValue(f.props.Entity, fl.spec.Name)
		} else if fl.spec.Default != "" {
			raw, ok = fl.spec.Default, true
		}
		if !ok {
			continue
		}
		f.setRaw(fl, raw, label)
	}
}

func (f *Form) setRaw(fl *field, raw, label string) tea.Cmd {
	switch {
	case fl.ref != nil:
		return fl.ref.SetValue(raw, label)
	case fl.spec.Kind == KindTextarea:
		fl.area.SetValue(raw)
	case fl.spec.Kind == KindCheckbox:
		fl.checked, _ = strconv.ParseBool(raw)
	case fl.spec.Kind == KindSelect:
		fl.choice = -1
		for i, o := range fl.spec.Options {
			if o.Value == raw {
				fl.choice = i
			}
		}
	default:
		fl.input.SetValue(raw)
	}
	return nil
}

// entityValue reads name from a record as input text. Reference values
// may be a bare id or a nested object; a "<name>_name" or
// "<name>_display" sibling supplies the label.
func entityValue(entity map[string]any, name string) (raw, label string, ok bool) {
	v, ok := entity[name]
	if !ok {
		return "", "", false
	}
	for _, suffix := range []string{"_name", "_display"} {
		if s, isStr := entity[name+suffix].(string); isStr && s != "" {
			label = s
			break
		}
	}
	switch val := v.(type) {
	case nil:
		return "", label, true
	case bool:
		return strconv.FormatBool(val), label, true
	case map[string]any:
		if label == "" {
			for _, k := range []string{"full_name", "name", "title", "username"} {
				if s, isStr := val[k].(string); isStr && s != "" {
					label = s
					break
				}
			}
		}
		return api.FormatID(val["id"]), label, true
	default:
		return api.FormatID(val), label, true
	}
}

// Init loads reference candidates and focuses the first field.
func (f *Form) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, fl := range f.fields {
		if fl.ref != nil {
			cmds = append(cmds, fl.ref.Init())
		}
	}
	cmds = append(cmds, f.focusCurrent())
	return tea.Batch(cmds...)
}

// SetWidth sets the render width.
func (f *Form) SetWidth(w int) {
	f.width = max(24, w)
	for _, fl := range f.fields {
		switch {
		case fl.ref != nil:
			fl.ref.SetWidth(f.width)
		case fl.spec.Kind == KindTextarea:
			fl.area.SetWidth(f.width - 2)
		default:
			fl.input.Width = f.width - 4
		}
	}
}

// SetLoading marks a submit in flight. Keys are ignored while loading.
func (f *Form) SetLoading(loading bool) { f.props.Loading = loading }

// Loading reports whether a submit is in flight.
func (f *Form) Loading() bool { return f.props.Loading }

// Focused returns the name of the focused field.
func (f *Form) Focused() string {
	if fl := f.current(); fl != nil {
		return fl.spec.Name
	}
	return ""
}

// Set replaces a field's raw value, as if typed.
func (f *Form) Set(name, raw string) tea.Cmd {
	for _, fl := range f.fields {
		if fl.spec.Name == name {
			return f.setRaw(fl, raw, "")
		}
	}
	return nil
}

// Errors returns the current per-field messages.
func (f *Form) Errors() map[string]string {
	out := map[string]string{}
	for _, fl := range f.fields {
		if fl.err != "" {
			out[fl.spec.Name] = fl.err
		}
	}
	return out
}

// SetServerErrors shows backend validation messages next to their
// fields. Messages for unknown fields are shown above the buttons.
func (f *Form) SetServerErrors(fields map[string][]string) {
	f.general = ""
	var rest []string
	for name, msgs := range fields {
		msg := strings.Join(msgs, " ")
		if fl := f.byName(name); fl != nil && fl.spec.Actor == "" {
			f.setErr(fl, msg)
			continue
		}
		rest = append(rest, msg)
	}
	f.general = strings.Join(rest, " ")
}

func (f *Form) byName(name string) *field {
	for _, fl := range f.fields {
		if fl.spec.Name == name {
			return fl
		}
	}
	return nil
}

func (f *Form) setErr(fl *field, msg string) {
	fl.err = msg
	if fl.ref != nil {
		fl.ref.SetError(msg)
	}
}

func (f *Form) raw(fl *field) string {
	switch {
	case fl.spec.Actor != "":
		return f.props.Actor.Value(fl.spec.Actor)
	case fl.ref != nil:
		return fl.ref.Value()
	case fl.spec.Kind == KindTextarea:
		return strings.TrimSpace(fl.area.Value())
	case fl.spec.Kind == KindCheckbox:
		return strconv.FormatBool(fl.checked)
	case fl.spec.Kind == KindSelect:
		if fl.choice < 0 || fl.choice >= len(fl.spec.Options) {
			return ""
		}
		return fl.spec.Options[fl.choice].Value
	default:
		return strings.TrimSpace(fl.input.Value())
	}
}

// Validate runs every field's rules and records the messages. It
// reports whether the form is valid.
func (f *Form) Validate() bool {
	ok := true
	for _, fl := range f.fields {
		if fl.spec.Actor != "" || (fl.spec.ReadOnly && f.Editing()) {
			continue
		}
		msg := f.check(fl)
		f.setErr(fl, msg)
		if msg != "" {
			ok = false
		}
	}
	return ok
}

func (f *Form) check(fl *field) string {
	if fl.spec.Kind == KindCheckbox {
		return ""
	}
	raw := f.raw(fl)
	rules, required := stripRequired(fl.spec.Rules)
	if raw == "" {
		if required {
			return RequiredMessage
		}
		return ""
	}
	if fl.spec.Kind == KindNumber {
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "Enter a number."
		}
		return checkRule(n, rules)
	}
	return checkRule(raw, rules)
}

// Values returns the payload for the mutation endpoint. Numbers are
// typed, checkboxes are bools, references and selects send their id or
// null. Actor fields are only sent on create.
func (f *Form) Values() map[string]any {
	out := map[string]any{}
	for _, fl := range f.fields {
		name := fl.spec.Name
		if fl.spec.ReadOnly && f.Editing() {
			continue
		}
		if fl.spec.Actor != "" {
			if f.Editing() {
				continue
			}
			if v := f.raw(fl); v != "" {
				out[name] = idValue(v)
			}
			continue
		}
		raw := f.raw(fl)
		switch {
		case fl.spec.Kind == KindCheckbox:
			out[name] = fl.checked
		case fl.spec.Kind == KindNumber:
			if raw == "" {
				out[name] = nil
				continue
			}
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				out[name] = n
			} else if x, err := strconv.ParseFloat(raw, 64); err == nil {
				out[name] = x
			}
		case fl.spec.Kind == KindReference:
			if raw == "" {
				out[name] = nil
				continue
			}
			out[name] = idValue(raw)
		case fl.spec.Kind == KindSelect:
			if raw == "" {
				out[name] = nil
				continue
			}
			out[name] = raw
		default:
			out[name] = raw
		}
	}
	return out
}

func idValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// Submit validates and hands the payload to OnSubmit.
func (f *Form) Submit() tea.Cmd {
	if f.props.Loading {
		return nil
	}
	f.general = ""
	if !f.Validate() {
		return nil
	}
	if f.props.OnSubmit == nil {
		return nil
	}
	return f.props.OnSubmit(f.Values())
}

// Release cancels outstanding reference lookups. The form is not used
// afterwards.
func (f *Form) Release() {
	for _, fl := range f.fields {
		if fl.ref != nil {
			fl.ref.Release()
		}
	}
}

// Cancel closes any open dropdown first; otherwise it calls OnCancel.
func (f *Form) Cancel() tea.Cmd {
	if fl := f.current(); fl != nil && fl.ref != nil && fl.ref.IsOpen() {
		return fl.ref.Close()
	}
	if f.props.OnCancel == nil {
		return nil
	}
	return f.props.OnCancel()
}

func (f *Form) current() *field {
	if len(f.order) == 0 {
		return nil
	}
	return f.fields[f.order[f.focus]]
}

func (f *Form) focusCurrent() tea.Cmd {
	var cmd tea.Cmd
	for i, idx := range f.order {
		fl := f.fields[idx]
		switch {
		case fl.ref != nil:
			if i != f.focus && fl.ref.IsOpen() {
				cmd = fl.ref.Close()
			}
		case fl.spec.Kind == KindTextarea:
			if i == f.focus {
				cmd = fl.area.Focus()
			} else {
				fl.area.Blur()
			}
		case fl.spec.Kind == KindCheckbox, fl.spec.Kind == KindSelect:
		default:
			if i == f.focus {
				cmd = fl.input.Focus()
			} else {
				fl.input.Blur()
			}
		}
	}
	return cmd
}

func (f *Form) move(delta int) tea.Cmd {
	if len(f.order) == 0 {
		return nil
	}
	f.focus = (f.focus + delta + len(f.order)) % len(f.order)
	return f.focusCurrent()
}

// Update routes keys to the focused field and everything else (load
// results, spinner ticks) to the reference fields.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		return f.handleKey(key)
	}
	var cmds []tea.Cmd
	for _, fl := range f.fields {
		if fl.ref != nil {
			cmds = append(cmds, fl.ref.Update(msg))
		}
	}
	if fl := f.current(); fl != nil {
		switch {
		case fl.ref != nil, fl.spec.Kind == KindCheckbox, fl.spec.Kind == KindSelect:
		case fl.spec.Kind == KindTextarea:
			var cmd tea.Cmd
			fl.area, cmd = fl.area.Update(msg)
			cmds = append(cmds, cmd)
		default:
			var cmd tea.Cmd
			fl.input, cmd = fl.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (f *Form) handleKey(msg tea.KeyMsg) tea.Cmd {
	if f.props.Loading {
		return nil
	}
	fl := f.current()
	if fl != nil && fl.ref != nil && fl.ref.IsOpen() {
		return fl.ref.Update(msg)
	}
	switch msg.String() {
	case "esc":
		return f.Cancel()
	case "ctrl+s":
		return f.Submit()
	case "tab":
		return f.move(1)
	case "shift+tab":
		return f.move(-1)
	}
	if fl == nil {
		return nil
	}

	switch {
	case fl.ref != nil:
		return fl.ref.Update(msg)
	case fl.spec.Kind == KindCheckbox:
		switch msg.String() {
		case " ", "x":
			fl.checked = !fl.checked
			fl.err = ""
		case "enter", "down":
			return f.advance()
		case "up":
			return f.move(-1)
		}
		return nil
	case fl.spec.Kind == KindSelect:
		switch msg.String() {
		case "left", "h":
			f.step(fl, -1)
		case "right", "l", " ":
			f.step(fl, 1)
		case "enter", "down":
			return f.advance()
		case "up":
			return f.move(-1)
		}
		return nil
	case fl.spec.Kind == KindTextarea:
		var cmd tea.Cmd
		fl.area, cmd = fl.area.Update(msg)
		fl.err = ""
		return cmd
	default:
		switch msg.String() {
		case "enter", "down":
			return f.advance()
		case "up":
			return f.move(-1)
		}
		var cmd tea.Cmd
		fl.input, cmd = fl.input.Update(msg)
		fl.err = ""
		return cmd
	}
}

// advance moves to the next field, submitting from the last one.
func (f *Form) advance() tea.Cmd {
	if f.focus == len(f.order)-1 {
		return f.Submit()
	}
	return f.move(1)
}

func (f *Form) step(fl *field, dir int) {
	n := len(fl.spec.Options)
	if n == 0 {
		return
	}
	// -1 is the empty choice unless the field is required
	lo := -1
	if fl.spec.Required() {
		lo = 0
	}
	next := fl.choice + dir
	if next < lo {
		next = n - 1
	} else if next >= n {
		next = lo
	}
	fl.choice = next
	fl.err = ""
}

// View renders the fields, top to bottom.
func (f *Form) View() string {
	var lines []string
	for i, idx := range f.order {
		fl := f.fields[idx]
		focused := i == f.focus
		if fl.ref != nil {
			lines = append(lines, f.label(fl, focused), fl.ref.View(), "")
			continue
		}
		lines = append(lines, f.label(fl, focused), f.input(fl, focused))
		if fl.err != "" {
			lines = append(lines, errStyle.Render(fl.err))
		} else if fl.spec.Help != "" {
			lines = append(lines, mutedStyle.Render(fl.spec.Help))
		}
		lines = append(lines, "")
	}
	if f.general != "" {
		lines = append(lines, errStyle.Render(f.general), "")
	}
	if f.props.Loading {
		lines = append(lines, mutedStyle.Render("Saving..."))
	} else {
		action := "create"
		if f.Editing() {
			action = "save"
		}
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("ctrl+s %s · tab next field · esc cancel", action)))
	}
	return strings.Join(lines, "\n")
}

func (f *Form) label(fl *field, focused bool) string {
	text := fl.spec.label()
	if fl.spec.Required() {
		text += " *"
	}
	if focused {
		return focusStyle.Render("▶ " + text)
	}
	return labelStyle.Render("  " + text)
}

func (f *Form) input(fl *field, focused bool) string {
	switch fl.spec.Kind {
	case KindTextarea:
		return fl.area.View()
	case KindCheckbox:
		if fl.checked {
			return checkedStyle.Render("  [x] yes")
		}
		return mutedStyle.Render("  [ ] no")
	case KindSelect:
		text := "(none)"
		if fl.choice >= 0 && fl.choice < len(fl.spec.Options) {
			text = fl.spec.Options[fl.choice].Label
		}
		if focused {
			return focusStyle.Render("  ‹ " + text + " ›")
		}
		return "  " + text
	default:
		return "  " + fl.input.View()
	}
}
