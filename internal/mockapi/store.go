package mockapi

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	errNotFound    = errors.New("not found")
	errInvalidPage = errors.New("invalid page")
)

// FieldErrors are per-field validation messages, shaped like the
// backend's 400 bodies.
type FieldErrors map[string][]string

func (f FieldErrors) Error() string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+strings.Join(f[n], " "))
	}
	return strings.Join(parts, "; ")
}

// Collection declares one REST collection of the mock backend.
type Collection struct {
	Path     string
	Search   []string          // fields matched by ?search=
	Filters  []string          // fields matched exactly by query params
	Rules    map[string]string // validator tags per field
	Unique   []string
	Defaults map[string]any
	// Derive fills read-only fields (display names) after every write.
	Derive func(s *Store, rec map[string]any)
}

type table struct {
	spec Collection
	rows map[int]map[string]any
	next int
}

// Store is the in-memory data behind the mock backend.
type Store struct {
	mu       sync.RWMutex
	tables   map[string]*table
	validate *validator.Validate
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{tables: map[string]*table{}, validate: validator.New(), now: now}
}

// Register adds a collection.
func (s *Store) Register(c Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Path = strings.Trim(c.Path, "/")
	s.tables[c.Path] = &table{spec: c, rows: map[int]map[string]any{}, next: 1}
}

// Paths lists registered collections.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for p := range s.tables {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Store) table(path string) (*table, error) {
	t, ok := s.tables[strings.Trim(path, "/")]
	if !ok {
		return nil, errNotFound
	}
	return t, nil
}

// ListParams select one page.
type ListParams struct {
	Search   string
	Ordering string
	Page     int
	PageSize int
	Filters  map[string]string
}

// List returns one page of matching rows and the total match count.
func (s *Store) List(path string, p ListParams) ([]map[string]any, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(path)
	if err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(strings.TrimSpace(p.Search))
	var rows []map[string]any
	for _, row := range t.rows {
		if !matchesFilters(t.spec, row, p.Filters) {
			continue
		}
		if search != "" && !matchesSearch(t.spec, row, search) {
			continue
		}
		rows = append(rows, row)
	}
	sortRows(rows, p.Ordering)

	count := len(rows)
	size := p.PageSize
	if size <= 0 {
		size = 20
	}
	size = min(size, 100)
	page := max(p.Page, 1)
	pages := max(1, int(math.Ceil(float64(count)/float64(size))))
	if page > pages {
		return nil, count, errInvalidPage
	}
	lo := (page - 1) * size
	hi := min(count, lo+size)
	out := make([]map[string]any, 0, hi-lo)
	for _, row := range rows[lo:hi] {
		out = append(out, clone(row))
	}
	return out, count, nil
}

func matchesFilters(spec Collection, row map[string]any, filters map[string]string) bool {
	for _, name := range spec.Filters {
		want, ok := filters[name]
		if !ok || want == "" {
			continue
		}
		if !strings.EqualFold(text(row[name]), want) {
			return false
		}
	}
	return true
}

func matchesSearch(spec Collection, row map[string]any, search string) bool {
	for _, name := range spec.Search {
		if strings.Contains(strings.ToLower(text(row[name])), search) {
			return true
		}
	}
	return false
}

func sortRows(rows []map[string]any, ordering string) {
	field, desc := "id", false
	if o := strings.TrimSpace(ordering); o != "" {
		desc = strings.HasPrefix(o, "-")
		field = strings.TrimPrefix(o, "-")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i][field], rows[j][field])
		if c == 0 {
			c = compare(rows[i]["id"], rows[j]["id"])
			return c < 0
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b any) int {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(text(a)), strings.ToLower(text(b)))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

func clone(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Get returns one row.
func (s *Store) Get(path string, id int) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(path)
	if err != nil {
		return nil, err
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, errNotFound
	}
	return clone(row), nil
}

// Create validates body and stores it under a new id.
func (s *Store) Create(path string, body map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(path)
	if err != nil {
		return nil, err
	}
	row := map[string]any{}
	for k, v := range t.spec.Defaults {
		row[k] = v
	}
	for k, v := range body {
		row[k] = v
	}
	delete(row, "id")
	if err := s.check(t, row, nil, 0); err != nil {
		return nil, err
	}
	id := t.next
	t.next++
	now := s.now().UTC().Format(time.RFC3339)
	row["id"] = float64(id)
	row["created_at"] = now
	row["updated_at"] = now
	if t.spec.Derive != nil {
		t.spec.Derive(s, row)
	}
	t.rows[id] = row
	return clone(row), nil
}

// Update merges body into row id. Only the given fields are validated.
func (s *Store) Update(path string, id int, body map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(path)
	if err != nil {
		return nil, err
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, errNotFound
	}
	merged := clone(row)
	for k, v := range body {
		if k == "id" || k == "created_at" {
			continue
		}
		merged[k] = v
	}
	if err := s.check(t, merged, body, id); err != nil {
		return nil, err
	}
	merged["updated_at"] = s.now().UTC().Format(time.RFC3339)
	if t.spec.Derive != nil {
		t.spec.Derive(s, merged)
	}
	t.rows[id] = merged
	return clone(merged), nil
}

// Delete removes row id.
func (s *Store) Delete(path string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(path)
	if err != nil {
		return err
	}
	if _, ok := t.rows[id]; !ok {
		return errNotFound
	}
	delete(t.rows, id)
	return nil
}

// check validates row. With only set (a partial update), fields absent
// from only are skipped. self is the row's own id for unique checks.
func (s *Store) check(t *table, row, only map[string]any, self int) FieldErrors {
	errs := FieldErrors{}
	for field, rules := range t.spec.Rules {
		if only != nil {
			if _, given := only[field]; !given {
				continue
			}
		}
		rest, required := splitRequired(rules)
		v := row[field]
		if v == nil || (required && strings.TrimSpace(text(v)) == "" && isString(v)) {
			if required {
				errs[field] = []string{"This field is required."}
			}
			continue
		}
		if rest == "" {
			continue
		}
		if err := s.validate.Var(v, rest); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				errs[field] = []string{message(verrs[0])}
			} else {
				errs[field] = []string{"Invalid value."}
			}
		}
	}
	for _, field := range t.spec.Unique {
		v := text(row[field])
		if v == "" {
			continue
		}
		for id, other := range t.rows {
			if id != self && strings.EqualFold(text(other[field]), v) {
				errs[field] = append(errs[field], fmt.Sprintf("A record with this %s already exists.", strings.ReplaceAll(field, "_", " ")))
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// splitRequired takes "required" out of a rule list. Presence is checked
// by the store, so zero numbers and false pass it.
func splitRequired(rules string) (string, bool) {
	var kept []string
	required := false
	for _, r := range strings.Split(rules, ",") {
		switch r = strings.TrimSpace(r); r {
		case "":
		case "required":
			required = true
		default:
			kept = append(kept, r)
		}
	}
	return strings.Join(kept, ","), required
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", text(fe.Value()))
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "datetime":
		return fmt.Sprintf("Date has wrong format. Use %s.", fe.Param())
	}
	return "Invalid value."
}

// lookup returns a row without locking; for Derive hooks, which run
// under the store lock.
func (s *Store) lookup(path string, id any) map[string]any {
	t, ok := s.tables[path]
	if !ok {
		return nil
	}
	n, ok := number(id)
	if !ok {
		if str, isStr := id.(string); isStr {
			parsed, err := strconv.Atoi(str)
			if err != nil {
				return nil
			}
			n = float64(parsed)
		} else {
			return nil
		}
	}
	return t.rows[int(n)]
}
