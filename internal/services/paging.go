package services

import (
	"context"
	"fmt"
)

// Page is one page of a cursor-paginated listing. Next is the absolute URL of the following page, nil on the last one.
type Page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether another page follows.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != nil && *p.Next != ""
}

// PageFetcher retrieves the page at the given cursor.
type PageFetcher[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// Aggregate returns every item reachable from first, in server order, by following Next cursors.
//
// A page with N successors costs N fetches. Any failed fetch fails the whole aggregation and no partial result is returned.
func Aggregate[T any](ctx context.Context, first *Page[T], fetch PageFetcher[T]) ([]T, error) {
	if first == nil {
		return nil, nil
	}

	items := make([]T, 0, max(first.Total, len(first.Items)))
	items = append(items, first.Items...)

	page := first
	for pages := 1; page.HasNext(); pages++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := fetch(ctx, *page.Next)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", pages+1, err)
		}
		if next == nil {
			break
		}
		items = append(items, next.Items...)
		page = next
	}

	return items, nil
}

// Collect fetches the page at cursor with fetch and aggregates everything after it.
func Collect[T any](ctx context.Context, cursor string, fetch PageFetcher[T]) ([]T, error) {
	first, err := fetch(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page 1: %w", err)
	}
	return Aggregate(ctx, first, fetch)
}
