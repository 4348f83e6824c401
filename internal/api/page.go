package api

import "fmt"

// DefaultPageSize is the page size assumed when a query does not carry one.
const DefaultPageSize = 20

// Page is the paginated list envelope returned by every list endpoint.
// Count is the total across all pages, not len(Results).
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// HasNext reports whether the backend advertised a following page.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != nil && *p.Next != ""
}

// HasPrevious reports whether the backend advertised a preceding page.
func (p *Page[T]) HasPrevious() bool {
	return p != nil && p.Previous != nil && *p.Previous != ""
}

// Len returns the number of results on this page.
func (p *Page[T]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Results)
}

// TotalPages is ceil(count / pageSize), never below 1. A non-positive
// pageSize falls back to DefaultPageSize.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// Check verifies that the page respects pageSize.
func (p *Page[T]) Check(pageSize int) error {
	if p == nil {
		return nil
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if len(p.Results) > pageSize {
		return fmt.Errorf("page holds %d results, page size is %d", len(p.Results), pageSize)
	}
	if p.Count < len(p.Results) {
		return fmt.Errorf("count %d is below the %d results on the page", p.Count, len(p.Results))
	}
	return nil
}
