package screen

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kumss/console/internal/datatable"
	"github.com/kumss/console/internal/form"
)

//go:embed screens.yaml
var defaultScreens []byte

// ColumnDef is a table column or detail row as written in YAML.
type ColumnDef struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Sortable bool   `yaml:"sortable"`
	Render   string `yaml:"render"`
	Width    int    `yaml:"width"`
}

// Definition declares one resource screen.
type Definition struct {
	Name              string                       `yaml:"name"`
	Title             string                       `yaml:"title"`
	Resource          string                       `yaml:"resource"`
	Description       string                       `yaml:"description"`
	SearchPlaceholder string                       `yaml:"search_placeholder"`
	AddLabel          string                       `yaml:"add_label"`
	Width             string                       `yaml:"width"`
	ReadOnly          bool                         `yaml:"read_only"`
	Columns           []ColumnDef                  `yaml:"columns"`
	Filters           []datatable.FilterDescriptor `yaml:"filters"`
	Fields            []form.FieldSpec             `yaml:"fields"`
	Detail            []ColumnDef                  `yaml:"detail"`
}

type catalog struct {
	Screens []Definition `yaml:"screens"`
}

// Load reads screen definitions from path, or the built-in set when path
// is empty. references lists the dropdown kinds forms may use.
func Load(path string, references []string) ([]Definition, error) {
	data := defaultScreens
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read screens file: %w", err)
		}
		data = raw
	}
	defs, err := Parse(data, references)
	if err != nil && path != "" {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, err
}

// Parse decodes and validates a screens document.
func Parse(data []byte, references []string) ([]Definition, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse screens: %w", err)
	}
	if len(c.Screens) == 0 {
		return nil, errors.New("no screens defined")
	}
	seen := map[string]bool{}
	for i := range c.Screens {
		d := &c.Screens[i]
		if err := d.validate(references); err != nil {
			return nil, fmt.Errorf("screen %q: %w", d.Name, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("screen %q: duplicate name", d.Name)
		}
		seen[d.Name] = true
	}
	return c.Screens, nil
}

func (d *Definition) validate(references []string) error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name is required")
	}
	if strings.Trim(d.Resource, "/ ") == "" {
		return errors.New("resource is required")
	}
	if d.Title == "" {
		d.Title = d.Name
	}
	if len(d.Columns) == 0 {
		return errors.New("at least one column is required")
	}
	for _, set := range [][]ColumnDef{d.Columns, d.Detail} {
		seen := map[string]bool{}
		for _, c := range set {
			if strings.TrimSpace(c.Key) == "" {
				return errors.New("column key is required")
			}
			if seen[c.Key] {
				return fmt.Errorf("column %q: duplicate key", c.Key)
			}
			seen[c.Key] = true
			if !KnownRenderer(c.Render) {
				return fmt.Errorf("column %q: unknown renderer %q", c.Key, c.Render)
			}
		}
	}
	if err := datatable.ValidateFilters(d.Filters); err != nil {
		return err
	}
	return form.ValidateFields(d.Fields, references)
}

// Find returns the definition named name.
func Find(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names lists definition names in order.
func Names(defs []Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}
