package datatable

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kumss/console/internal/api"
)

// Reserved filter state keys.
const (
	KeySearch   = "search"
	KeyPage     = "page"
	KeyPageSize = "page_size"
	KeyOrdering = "ordering"
)

// PageSizes are the page size choices offered by the table.
var PageSizes = []int{10, 20, 50, 100}

// FilterState is the query a screen sends for its list. It is treated as
// immutable: every change produces a new map via With.
type FilterState map[string]any

// NewFilterState returns the initial state, page 1.
func NewFilterState() FilterState {
	return FilterState{KeyPage: 1}
}

// Clone copies the state.
func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f)+2)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// With returns a copy with key set to v. A nil v or empty string removes
// the key, so the parameter is omitted from the query.
func (f FilterState) With(key string, v any) FilterState {
	out := f.Clone()
	if isEmpty(v) {
		delete(out, key)
	} else {
		out[key] = v
	}
	return out
}

// Reset is With followed by a jump back to page 1.
func (f FilterState) Reset(key string, v any) FilterState {
	return f.With(key, v).With(KeyPage, 1)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// Page returns the current page, 1 when unset or invalid.
func (f FilterState) Page() int {
	if n, ok := asInt(f[KeyPage]); ok && n > 0 {
		return n
	}
	return 1
}

// PageSize returns the page size, api.DefaultPageSize when unset.
func (f FilterState) PageSize() int {
	if n, ok := asInt(f[KeyPageSize]); ok && n > 0 {
		return n
	}
	return api.DefaultPageSize
}

// Search returns the committed search term.
func (f FilterState) Search() string {
	s, _ := f[KeySearch].(string)
	return s
}

// Ordering returns the ordering parameter ("key" or "-key").
func (f FilterState) Ordering() string {
	s, _ := f[KeyOrdering].(string)
	return s
}

// Query flattens the state into query parameters. Keys with nil values
// are omitted; booleans are sent as true/false.
func (f FilterState) Query() url.Values {
	q := url.Values{}
	for k, v := range f {
		switch x := v.(type) {
		case nil:
		case []string:
			for _, s := range x {
				q.Add(k, s)
			}
		default:
			s := formatValue(x)
			if s != "" {
				q.Set(k, s)
			}
		}
	}
	return q
}

// CanonicalKey serializes the state with sorted keys.
func (f FilterState) CanonicalKey() string {
	return f.Query().Encode()
}

// Keys returns the non-reserved keys that carry a value, sorted.
func (f FilterState) Keys() []string {
	var out []string
	for k, v := range f {
		if v == nil {
			continue
		}
		switch k {
		case KeySearch, KeyPage, KeyPageSize, KeyOrdering:
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return Stringify(x)
	}
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	}
	return 0, false
}

// FilterType is the control used for a filter.
type FilterType string

const (
	FilterSelect   FilterType = "select"
	FilterText     FilterType = "text"
	FilterCheckbox FilterType = "checkbox"
)

// Option is one choice of a select filter.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// FilterDescriptor describes one filter control of the filter panel.
type FilterDescriptor struct {
	Name    string     `yaml:"name"`
	Label   string     `yaml:"label"`
	Type    FilterType `yaml:"type"`
	Options []Option   `yaml:"options"`
}

var errFilterName = errors.New("filter name is required")

// ValidateFilters checks names and that options are given exactly for
// select filters.
func ValidateFilters(descs []FilterDescriptor) error {
	seen := map[string]struct{}{}
	for _, d := range descs {
		if strings.TrimSpace(d.Name) == "" {
			return errFilterName
		}
		switch d.Name {
		case KeySearch, KeyPage, KeyPageSize, KeyOrdering:
			return fmt.Errorf("filter %q: name is reserved", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("filter %q: duplicate name", d.Name)
		}
		seen[d.Name] = struct{}{}
		switch d.Type {
		case FilterSelect:
			if len(d.Options) == 0 {
				return fmt.Errorf("filter %q: select needs options", d.Name)
			}
		case FilterText, FilterCheckbox:
			if len(d.Options) > 0 {
				return fmt.Errorf("filter %q: options are only valid for select", d.Name)
			}
		default:
			return fmt.Errorf("filter %q: unknown type %q", d.Name, d.Type)
		}
	}
	return nil
}
