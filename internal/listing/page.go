// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package listing

import (
	"fmt"
)

// Page is one window of a filtered, newest-first result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"pages"`
}

// NewPage assembles a page from a query, its items and the total row count.
// A nil items slice is replaced by an empty one so it encodes as [].
func NewPage[T any](q Query, items []T, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: TotalPages(total, q.Limit),
	}
}

// TotalPages returns ceil(total/limit); zero when there are no items.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ListAndCount runs a list function and a count function and returns both
// results, stopping at the first error.
func ListAndCount[T any](listFn func() ([]T, error), countFn func() (int64, error)) ([]T, int64, error) {
	items, err := listFn()
	if err != nil {
		return nil, 0, err
	}
	total, err := countFn()
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Links holds navigation URLs for a page. Empty strings mark links that do
// not apply (no previous page on page 1, and so on).
type Links struct {
	Self  string `json:"self"`
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// BuildLinks creates navigation links that keep the query's filters.
// baseURL is the path without query string (e.g., "/api/admin/content").
func BuildLinks(baseURL string, q Query, totalPages int) Links {
	params := q.Values()
	params.Del("page")
	qs := params.Encode()

	pageURL := func(page int) string {
		if qs != "" {
			return fmt.Sprintf("%s?%s&page=%d", baseURL, qs, page)
		}
		return fmt.Sprintf("%s?page=%d", baseURL, page)
	}

	links := Links{Self: pageURL(q.Page)}
	if totalPages < 1 {
		return links
	}
	links.First = pageURL(1)
	links.Last = pageURL(totalPages)
	if q.Page > 1 {
		prev := q.Page - 1
		if prev > totalPages {
			prev = totalPages
		}
		links.Prev = pageURL(prev)
	}
	if q.Page < totalPages {
		links.Next = pageURL(q.Page + 1)
	}
	return links
}

// PageNumbers returns up to five page numbers centered on current, with 0
// standing for an ellipsis and the first and last pages always included.
func PageNumbers(current, totalPages int) []int {
	if totalPages < 1 {
		return nil
	}
	var pages []int

	start := current - 2
	end := current + 2
	if start < 1 {
		start = 1
		end = 5
	}
	if end > totalPages {
		end = totalPages
		start = max(end-4, 1)
	}

	if start > 1 {
		pages = append(pages, 1)
		if start > 2 {
			pages = append(pages, 0)
		}
	}
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	if end < totalPages {
		if end < totalPages-1 {
			pages = append(pages, 0)
		}
		pages = append(pages, totalPages)
	}

	return pages
}
