package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Record is an untyped row as decoded from JSON. Screens that are driven
// by configuration work on records; typed callers use their own structs.
type Record map[string]any

// ID returns the record's "id" field in string form.
func (r Record) ID() string {
	return FormatID(r["id"])
}

// FormatID renders a JSON id value without float noise.
func FormatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return fmt.Sprint(id)
	}
}

// Resource is a typed handle on one REST collection, e.g.
// "communication/notices".
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to a client.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: strings.Trim(path, "/")}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string {
	return r.path
}

// List fetches one page using the flat query built from filter state.
func (r *Resource[T]) List(ctx context.Context, query url.Values) (*Page[T], error) {
	var page Page[T]
	if err := r.client.do(ctx, http.MethodGet, r.client.endpoint(r.path), query, nil, &page); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.path, err)
	}
	return &page, nil
}

// Get fetches a single record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodGet, r.client.endpoint(r.path, id), nil, nil, &out); err != nil {
		return out, fmt.Errorf("get %s/%s: %w", r.path, id, err)
	}
	return out, nil
}

// Create posts a new record and returns the stored version.
func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPost, r.client.endpoint(r.path), nil, body, &out); err != nil {
		return out, fmt.Errorf("create %s: %w", r.path, err)
	}
	return out, nil
}

// Update patches an existing record.
func (r *Resource[T]) Update(ctx context.Context, id string, body any) (T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPatch, r.client.endpoint(r.path, id), nil, body, &out); err != nil {
		return out, fmt.Errorf("update %s/%s: %w", r.path, id, err)
	}
	return out, nil
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, http.MethodDelete, r.client.endpoint(r.path, id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", r.path, id, err)
	}
	return nil
}
