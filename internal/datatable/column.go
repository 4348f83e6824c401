package datatable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Missing is shown for cells whose value is absent or null.
const Missing = "-"

// Column describes one table column. Key is a dot path into the row and
// must be unique within a column set. Render, when set, replaces the
// default stringification.
type Column[T any] struct {
	Key      string
	Label    string
	Sortable bool
	Render   func(T) string
	Width    int
}

// ValidateColumns checks that keys are present and unique.
func ValidateColumns[T any](cols []Column[T]) error {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if strings.TrimSpace(c.Key) == "" {
			return fmt.Errorf("column %d: key is required", i)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("column %q: duplicate key", c.Key)
		}
		seen[c.Key] = struct{}{}
	}
	return nil
}

// CellText renders the cell for row in column c.
func CellText[T any](c Column[T], row T) string {
	if c.Render != nil {
		return flatten(c.Render(row))
	}
	v, ok := Lookup(row, c.Key)
	if !ok || v == nil {
		return Missing
	}
	return flatten(Stringify(v))
}

// Stringify coerces a decoded JSON value (or a struct field) to text.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	default:
		return fmt.Sprint(x)
	}
}

func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
