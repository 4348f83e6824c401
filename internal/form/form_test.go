package form

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

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
	"github.com/kumss/console/internal/kumss"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

var noticeFields = []FieldSpec{
	{Name: "title", Label: "Title", Kind: KindText, Rules: "required,max=20"},
	{Name: "max_marks", Label: "Max marks", Kind: KindNumber, Rules: "gte=0"},
	{Name: "is_active", Label: "Active", Kind: KindCheckbox, Default: "true"},
	{Name: "priority", Label: "Priority", Kind: KindSelect, Options: []datatable.Option{
		{Value: "low", Label: "Low"}, {Value: "high", Label: "High"},
	}},
	{Name: "created_by", Actor: "user_id"},
	{Name: "college", Actor: "college_id"},
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCreatePayloadIsTyped(t *testing.T) {
	var got map[string]any
	f := New(Props{
		Fields: noticeFields,
		Actor:  config.Actor{UserID: "12", CollegeID: "3"},
		OnSubmit: func(v map[string]any) tea.Cmd {
			got = v
			return nil
		},
	})
	f.Set("title", "Exam week")
	f.Set("max_marks", "100")
	f.Set("priority", "high")
	f.Submit()

	require.Equal(t, map[string]any{
		"title":      "Exam week",
		"max_marks":  int64(100),
		"is_active":  true,
		"priority":   "high",
		"created_by": int64(12),
		"college":    int64(3),
	}, got)
}

func TestEmptyOptionalValuesAreNull(t *testing.T) {
	f := New(Props{Fields: noticeFields})
	f.Set("title", "x")
	v := f.Values()
	require.Nil(t, v["max_marks"])
	require.Contains(t, v, "max_marks")
	require.Nil(t, v["priority"])
	require.NotContains(t, v, "created_by", "no actor, nothing to send")
}

func TestValidationBlocksSubmit(t *testing.T) {
	called := false
	f := New(Props{
		Fields: []FieldSpec{
			{Name: "title", Kind: KindText, Rules: "required"},
			{Name: "email", Kind: KindText, Rules: "email"},
			{Name: "capacity", Kind: KindNumber, Rules: "required,gte=1"},
			{Name: "code", Kind: KindText, Rules: "max=3"},
		},
		OnSubmit: func(map[string]any) tea.Cmd {
			called = true
			return nil
		},
	})
	f.Set("email", "not-an-email")
	f.Set("capacity", "abc")
	f.Set("code", "ABCD")

	require.Nil(t, f.Submit())
	require.False(t, called)
	errs := f.Errors()
	require.Equal(t, RequiredMessage, errs["title"])
	require.Contains(t, errs["email"], "valid email")
	require.Equal(t, "Enter a number.", errs["capacity"])
	require.Contains(t, errs["code"], "3 characters")

	f.Set("title", "Lab")
	f.Set("email", "")
	f.Set("capacity", "0")
	f.Set("code", "LAB")
	f.Submit()
	require.False(t, called)
	require.Contains(t, f.Errors()["capacity"], "1")

	f.Set("capacity", "30")
	f.Submit()
	require.True(t, called)
	require.Empty(t, f.Errors())
}

func TestEditPrefillsAndKeepsOwnership(t *testing.T) {
	var got map[string]any
	f := New(Props{
		Entity: map[string]any{
			"id":         float64(5),
			"title":      "Old title",
			"max_marks":  float64(50),
			"is_active":  false,
			"priority":   "low",
			"created_by": float64(9),
		},
		Fields: noticeFields,
		Actor:  config.Actor{UserID: "12"},
		OnSubmit: func(v map[string]any) tea.Cmd {
			got = v
			return nil
		},
	})
	require.True(t, f.Editing())
	f.Submit()
	require.Equal(t, map[string]any{
		"title":     "Old title",
		"max_marks": int64(50),
		"is_active": false,
		"priority":  "low",
	}, got)
}

func TestKeysDriveFocusAndSubmit(t *testing.T) {
	submits, cancels := 0, 0
	f := New(Props{
		Fields: []FieldSpec{
			{Name: "title", Kind: KindText, Rules: "required"},
			{Name: "venue", Kind: KindText},
			{Name: "is_public", Kind: KindCheckbox},
		},
		OnSubmit: func(map[string]any) tea.Cmd {
			submits++
			return nil
		},
		OnCancel: func() tea.Cmd {
			cancels++
			return nil
		},
	})
	f.Init()
	require.Equal(t, "title", f.Focused())

	f.Update(keyRunes("Sports Day"))
	f.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "venue", f.Focused())
	f.Update(keyRunes("Field"))
	f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "is_public", f.Focused())
	f.Update(keyRunes(" "))
	f.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, "venue", f.Focused())

	require.Equal(t, map[string]any{"title": "Sports Day", "venue": "Field", "is_public": true}, f.Values())

	f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, 1, submits)

	f.SetLoading(true)
	f.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, 1, submits)
	require.Equal(t, 0, cancels)
	require.Contains(t, f.View(), "Saving...")

	f.SetLoading(false)
	f.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, 1, cancels)
}

func TestSelectCyclesThroughEmpty(t *testing.T) {
	f := New(Props{Fields: []FieldSpec{{Name: "priority", Kind: KindSelect, Options: []datatable.Option{
		{Value: "low", Label: "Low"}, {Value: "high", Label: "High"},
	}}}})
	f.Init()
	require.Contains(t, f.View(), "(none)")
	f.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, "low", f.Values()["priority"])
	f.Update(tea.KeyMsg{Type: tea.KeyRight})
	f.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Nil(t, f.Values()["priority"])
	f.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, "high", f.Values()["priority"])
}

func TestServerErrorsShowInline(t *testing.T) {
	f := New(Props{Fields: noticeFields})
	f.SetServerErrors(map[string][]string{
		"title":            {"Ensure this field has no more than 200 characters."},
		"non_field_errors": {"A notice with this title already exists."},
	})
	require.Equal(t, "Ensure this field has no more than 200 characters.", f.Errors()["title"])
	view := f.View()
	require.Contains(t, view, "no more than 200 characters")
	require.Contains(t, view, "already exists")
}

func TestValidateFields(t *testing.T) {
	require.NoError(t, ValidateFields(noticeFields, nil))
	require.Error(t, ValidateFields([]FieldSpec{{Name: "a", Kind: KindText}, {Name: "a", Kind: KindText}}, nil))
	require.Error(t, ValidateFields([]FieldSpec{{Name: "p", Kind: KindSelect}}, nil))
	require.Error(t, ValidateFields([]FieldSpec{{Name: "r", Kind: KindReference, Reference: "room"}}, []string{"user"}))
	require.Error(t, ValidateFields([]FieldSpec{{Name: "x", Kind: "date"}}, nil))
	require.Error(t, ValidateFields([]FieldSpec{{Name: "x", Actor: "owner"}}, nil))
	require.NoError(t, ValidateFields([]FieldSpec{{Name: "r", Kind: KindReference, Reference: "user"}}, []string{"user"}))
}

// drain runs cmd and feeds its messages back into the form, skipping
// cursor blinks and spinner ticks.
func drain(f *Form, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			drain(f, c)
		}
	case nil, cursor.BlinkMsg, spinner.TickMsg:
	default:
		drain(f, f.Update(msg))
	}
}

func TestReferenceFieldSubmitsPickedID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := "Grace Achieng"
		_ = json.NewEncoder(w).Encode(api.Page[kumss.User]{
			Count:   1,
			Results: []kumss.User{{ID: 41, FullName: &name, UserType: "teacher"}},
		})
	}))
	defer srv.Close()
	c, err := api.New(srv.URL + "/api/v1")
	require.NoError(t, err)
	refs := dropdown.NewRegistry(context.Background(), kumss.NewClient(c))

	f := New(Props{
		Fields: []FieldSpec{
			{Name: "class_teacher", Label: "Class teacher", Kind: KindReference, Reference: "user",
				Params: map[string]string{"user_type": "teacher"}, Rules: "required"},
		},
		Refs: refs,
	})
	drain(f, f.Init())
	require.Contains(t, f.View(), "Class teacher *")

	require.False(t, f.Validate())
	require.Contains(t, f.View(), RequiredMessage)

	f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	f.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, map[string]any{"class_teacher": int64(41)}, f.Values())
	require.Empty(t, f.Errors())
	require.Contains(t, f.View(), "Grace Achieng")
}
