// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Content status filters.
const (
	StatusAll       = "all"
	StatusPublished = "published"
	StatusDraft     = "draft"
)

// Content is a managed content item.
type Content struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	Tags        string    `json:"tags"`
	BannerImage string    `json:"banner_image"`
	Published   bool      `json:"published"`
	AuthorID    int64     `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Author *Author `json:"author,omitempty"`
}

// Author is the part of an account shown next to content.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TagList splits the comma-delimited tags into trimmed, non-empty values.
func (c *Content) TagList() []string {
	return SplitTags(c.Tags)
}

// SplitTags splits a comma-delimited tag string.
func SplitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ContentSummary is the reduced form returned by the capped public list.
type ContentSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	BannerImage string    `json:"banner_image"`
	CreatedAt   time.Time `json:"created_at"`
}
