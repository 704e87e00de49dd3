// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/olegiv/sitecms/internal/util"
)

// LocalURLPrefix is the URL path under which local uploads are served.
const LocalURLPrefix = "/uploads/"

// LocalStore keeps blobs in a directory served at LocalURLPrefix.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes data to <dir>/<name> and returns /uploads/<name>.
func (s *LocalStore) Put(_ context.Context, data []byte, name, _ string) (string, error) {
	path, err := util.SafeJoinPath(s.dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating uploads directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return LocalURLPrefix + name, nil
}

// Delete removes the file behind an /uploads/ URL. A file that is already
// gone is not an error.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, LocalURLPrefix)
	if !ok {
		return fmt.Errorf("not a local upload URL: %q", url)
	}
	path, err := util.SafeJoinPath(s.dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}
