// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package listing implements the filter, pagination and link model shared
// by every list endpoint. Filtering and slicing always happen server-side.
package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/olegiv/sitecms/internal/model"
)

// Page size bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps Offset within int for any allowed limit.
	MaxPage = math.MaxInt / MaxLimit
)

// LimitPresets are the page sizes offered by the admin and public list views.
var LimitPresets = []int{5, 6, 10, 12, 18, 20, 24, 50}

// Query holds the filter and window of a list request. Use the With*
// methods to change filters; they reset Page to 1 whenever a filter value
// actually changes.
type Query struct {
	Search string
	Tag    string
	Status string
	Role   model.Role
	Page   int
	Limit  int
}

// NewQuery returns a query for the first page with the given limit.
func NewQuery(limit int) Query {
	return Query{Status: model.StatusAll, Page: 1, Limit: clampLimit(limit, DefaultLimit)}
}

// WithSearch sets the search term.
func (q Query) WithSearch(s string) Query {
	s = strings.TrimSpace(s)
	if s != q.Search {
		q.Search = s
		q.Page = 1
	}
	return q
}

// WithTag sets the tag filter.
func (q Query) WithTag(tag string) Query {
	tag = strings.TrimSpace(tag)
	if tag != q.Tag {
		q.Tag = tag
		q.Page = 1
	}
	return q
}

// WithStatus sets the published state filter. Unknown values mean all.
func (q Query) WithStatus(status string) Query {
	switch status {
	case model.StatusPublished, model.StatusDraft:
	default:
		status = model.StatusAll
	}
	if status != q.Status {
		q.Status = status
		q.Page = 1
	}
	return q
}

// WithRole sets the exact-match role filter. RoleNone disables it.
func (q Query) WithRole(r model.Role) Query {
	if r != q.Role {
		q.Role = r
		q.Page = 1
	}
	return q
}

// WithLimit sets the page size.
func (q Query) WithLimit(limit int) Query {
	limit = clampLimit(limit, q.Limit)
	if limit != q.Limit {
		q.Limit = limit
		q.Page = 1
	}
	return q
}

// WithPage moves to the given page. Values below 1 select the first page
// and values above MaxPage select MaxPage.
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	q.Page = page
	return q
}

// Offset returns the number of rows preceding the current page.
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	page := min(q.Page, MaxPage)
	return (page - 1) * min(q.Limit, MaxLimit)
}

// PublishedFilter maps Status onto a nullable published flag: nil means any.
func (q Query) PublishedFilter() *bool {
	var v bool
	switch q.Status {
	case model.StatusPublished:
		v = true
	case model.StatusDraft:
		v = false
	default:
		return nil
	}
	return &v
}

// Values encodes the non-default filters, page and limit as URL query values.
func (q Query) Values() url.Values {
	v := make(url.Values)
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if q.Status != "" && q.Status != model.StatusAll {
		v.Set("status", q.Status)
	}
	if q.Role != model.RoleNone {
		v.Set("role", q.Role.String())
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// ParseQuery reads search, tag, status, role, page and limit from query
// values. Invalid numbers fall back to the first page and defaultLimit.
func ParseQuery(values url.Values, defaultLimit int) Query {
	q := NewQuery(defaultLimit).
		WithSearch(values.Get("search")).
		WithTag(values.Get("tag")).
		WithStatus(values.Get("status")).
		WithRole(model.ParseRole(values.Get("role"))).
		WithLimit(ParseInt(values.Get("limit"), defaultLimit))

	return q.WithPage(ParseInt(values.Get("page"), 1))
}

// ParseInt parses a positive integer, returning defaultVal when s is empty,
// malformed or not positive.
func ParseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil || val < 1 {
		return defaultVal
	}
	return val
}

func clampLimit(limit, fallback int) int {
	if limit < 1 {
		limit = fallback
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// Fold returns the case-folded form of s used for case-insensitive
// substring matching. Stored search columns hold the same folding.
func Fold(s string) string {
	return cases.Fold().String(s)
}
