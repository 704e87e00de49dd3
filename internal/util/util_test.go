// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation", "Hello, World!", "hello-world"},
		{"accents", "Café résumé", "cafe-resume"},
		{"umlauts", "Über München", "uber-munchen"},
		{"cyrillic", "Привет мир", "privet-mir"},
		{"multiple spaces", "  Hello   World  ", "hello-world"},
		{"only symbols", "!@#$%^&*()", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFileSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"My Photo.JPG", "my-photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\banner image.png`, "banner-image.png"},
		{"Фото.webp", "foto.webp"},
		{"???.gif", "file.gif"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := FileSlug(tt.input); got != tt.want {
			t.Errorf("FileSlug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSafeJoinPath(t *testing.T) {
	base := t.TempDir()

	got, err := SafeJoinPath(base, "a.jpg")
	if err != nil {
		t.Fatalf("SafeJoinPath: %v", err)
	}
	if filepath.Dir(got) != base {
		t.Errorf("SafeJoinPath dir = %q, want %q", filepath.Dir(got), base)
	}

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		if _, err := SafeJoinPath(base, name); !errors.Is(err, ErrPathTraversal) {
			t.Errorf("SafeJoinPath(%q) err = %v, want ErrPathTraversal", name, err)
		}
	}
}

func TestNullHelpers(t *testing.T) {
	if NullStringFromValue("").Valid {
		t.Error("NullStringFromValue(\"\") is valid")
	}
	if !NullStringFromValue("x").Valid {
		t.Error("NullStringFromValue(x) is not valid")
	}
	if NullTimeFromValue(time.Time{}).Valid {
		t.Error("NullTimeFromValue(zero) is valid")
	}
	loc := time.FixedZone("X", 3600)
	nt := NullTimeFromValue(time.Date(2025, 1, 1, 12, 0, 0, 0, loc))
	if !nt.Valid || nt.Time.Location() != time.UTC || nt.Time.Hour() != 11 {
		t.Errorf("NullTimeFromValue = %+v, want 11:00 UTC", nt)
	}
}

func TestParsePositiveID(t *testing.T) {
	tests := []struct {
		in string
		id int64
		ok bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		id, ok := ParsePositiveID(tt.in)
		if id != tt.id || ok != tt.ok {
			t.Errorf("ParsePositiveID(%q) = (%d, %v), want (%d, %v)", tt.in, id, ok, tt.id, tt.ok)
		}
	}
}
