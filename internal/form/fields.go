// Package form is the create/edit form hosted by the detail panel. Fields
// are declared as data, validated with validator rules and submitted as a
// plain map shaped for the backend's mutation endpoints.
package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kumss/console/internal/datatable"
)

// Kind is a field's input type.
type Kind string

const (
	KindText      Kind = "text"
	KindTextarea  Kind = "textarea"
	KindNumber    Kind = "number"
	KindCheckbox  Kind = "checkbox"
	KindSelect    Kind = "select"
	KindReference Kind = "reference"
)

// FieldSpec declares one field.
type FieldSpec struct {
	Name        string             `yaml:"name"`
	Label       string             `yaml:"label"`
	Kind        Kind               `yaml:"type"`
	Rules       string             `yaml:"rules"`
	Placeholder string             `yaml:"placeholder"`
	Help        string             `yaml:"help"`
	Default     string             `yaml:"default"`
	Options     []datatable.Option `yaml:"options"`
	// Reference names the dropdown kind for reference fields, e.g. "user".
	Reference string            `yaml:"reference"`
	Params    map[string]string `yaml:"params"`
	// Actor fills the field from the operator's session ("user_id" or
	// "college_id") on create. Actor fields are not rendered.
	Actor    string `yaml:"actor"`
	ReadOnly bool   `yaml:"read_only"`
}

// Required reports whether the rules include "required".
func (s FieldSpec) Required() bool {
	_, required := stripRequired(s.Rules)
	return required
}

func (s FieldSpec) label() string {
	if s.Label != "" {
		return s.Label
	}
	return strings.ReplaceAll(s.Name, "_", " ")
}

var errFieldName = errors.New("field name is required")

// ValidateFields checks a field list for unique names and kind-specific
// requirements. references lists the known dropdown kinds; nil skips
// that check.
func ValidateFields(fields []FieldSpec, references []string) error {
	known := map[string]bool{}
	for _, r := range references {
		known[r] = true
	}
	seen := map[string]bool{}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return errFieldName
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if f.Actor != "" {
			if f.Actor != "user_id" && f.Actor != "college_id" {
				return fmt.Errorf("field %q: unknown actor attribute %q", f.Name, f.Actor)
			}
			continue
		}
		switch f.Kind {
		case KindText, KindTextarea, KindNumber, KindCheckbox:
		case KindSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("field %q: select needs options", f.Name)
			}
		case KindReference:
			if f.Reference == "" {
				return fmt.Errorf("field %q: reference kind is required", f.Name)
			}
			if references != nil && !known[f.Reference] {
				return fmt.Errorf("field %q: unknown reference kind %q", f.Name, f.Reference)
			}
		default:
			return fmt.Errorf("field %q: unknown type %q", f.Name, f.Kind)
		}
	}
	return nil
}
