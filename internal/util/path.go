// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a joined path escapes its base directory.
var ErrPathTraversal = errors.New("path traversal detected")

// SafeJoinPath joins name onto base and verifies the result stays inside
// base. name must be a single path element.
func SafeJoinPath(base, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name %q: %w", name, ErrPathTraversal)
	}

	absBase, err := filepath.Abs(filepath.Clean(base))
	if err != nil {
		return "", fmt.Errorf("resolving base path: %w", err)
	}
	full := filepath.Join(absBase, name)

	// The separator suffix stops /uploads-evil from matching /uploads.
	if !strings.HasPrefix(full, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return full, nil
}
