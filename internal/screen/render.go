package screen

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kumss/console/internal/api"
	"github.com/kumss/console/internal/datatable"
)

var renderers = map[string]bool{
	"": true, "text": true, "date": true, "datetime": true,
	"relative": true, "bool": true, "badge": true, "count": true,
}

// KnownRenderer reports whether name is a column renderer.
func KnownRenderer(name string) bool {
	return renderers[name]
}

// Formatter renders cell values.
type Formatter struct {
	DateFormat string
	Location   *time.Location
	Now        func() time.Time
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f Formatter) dateFormat() string {
	if f.DateFormat == "" {
		return "2006-01-02"
	}
	return f.DateFormat
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Render formats v with the named renderer. Absent values are "-".
func (f Formatter) Render(name string, v any) string {
	if v == nil {
		return datatable.Missing
	}
	switch name {
	case "date":
		if t, ok := parseTime(v); ok {
			return t.In(f.loc()).Format(f.dateFormat())
		}
	case "datetime":
		if t, ok := parseTime(v); ok {
			return t.In(f.loc()).Format(f.dateFormat() + " 15:04")
		}
	case "relative":
		if t, ok := parseTime(v); ok {
			return humanize.RelTime(t, f.now(), "ago", "from now")
		}
	case "bool":
		switch b := v.(type) {
		case bool:
			if b {
				return "yes"
			}
			return "no"
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return f.Render("bool", parsed)
			}
		}
	case "badge":
		s := strings.TrimSpace(datatable.Stringify(v))
		if s == "" {
			return datatable.Missing
		}
		return "[" + strings.ReplaceAll(s, "_", " ") + "]"
	case "count":
		switch n := v.(type) {
		case float64:
			if n == math.Trunc(n) && math.Abs(n) < 1e15 {
				return humanize.Comma(int64(n))
			}
			return humanize.CommafWithDigits(n, 2)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return humanize.Comma(i)
			}
		case int:
			return humanize.Comma(int64(n))
		case int64:
			return humanize.Comma(n)
		case string:
			if x, err := strconv.ParseFloat(n, 64); err == nil {
				return f.Render("count", x)
			}
		case []any:
			return humanize.Comma(int64(len(n)))
		}
	}
	s := datatable.Stringify(v)
	if s == "" {
		return datatable.Missing
	}
	return s
}

// Columns turns column definitions into table columns over records.
func (f Formatter) Columns(defs []ColumnDef) []datatable.Column[api.Record] {
	out := make([]datatable.Column[api.Record], 0, len(defs))
	for _, d := range defs {
		label := d.Label
		if label == "" {
			label = humanLabel(d.Key)
		}
		col := datatable.Column[api.Record]{Key: d.Key, Label: label, Sortable: d.Sortable, Width: d.Width}
		if d.Render != "" && d.Render != "text" {
			key, name := d.Key, d.Render
			col.Render = func(r api.Record) string {
				v, ok := datatable.Lookup(r, key)
				if !ok {
					return datatable.Missing
				}
				return f.Render(name, v)
			}
		}
		out = append(out, col)
	}
	return out
}

func humanLabel(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
