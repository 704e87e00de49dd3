// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides small helpers shared by the storage, service and
// handler layers: file name slugs, path containment and SQL null values.
package util

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	// slugRegex matches anything that is not a lowercase letter, digit or hyphen.
	slugRegex       = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// maxSlugLength bounds the stem of generated file names.
const maxSlugLength = 80

// Slugify transliterates s to ASCII and reduces it to lowercase letters,
// digits and single hyphens.
func Slugify(s string) string {
	result := strings.ToLower(unidecode.Unidecode(s))
	result = strings.Join(strings.Fields(result), "-")
	result = slugRegex.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > maxSlugLength {
		result = strings.TrimRight(result[:maxSlugLength], "-")
	}
	return result
}

// FileSlug turns an uploaded file name into a safe, ASCII-only name that
// keeps its lowercase extension. Directory components are discarded.
// An empty stem becomes "file".
func FileSlug(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	ext = "." + Slugify(strings.TrimPrefix(ext, "."))
	if ext == "." {
		ext = ""
	}
	return stem + ext
}
