// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage stores uploaded blobs and releases them again by URL.
// Blobs live either in a local uploads directory or in an S3 bucket; the
// URL shape decides which backend owns a blob.
package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a Router asked to use a missing backend.
var ErrNotConfigured = errors.New("storage backend not configured")

// Putter stores a blob and returns its public URL.
type Putter interface {
	Put(ctx context.Context, data []byte, name, contentType string) (string, error)
}

// Deleter releases a blob previously returned by Put.
type Deleter interface {
	Delete(ctx context.Context, url string) error
}

// Store is a blob storage backend.
type Store interface {
	Putter
	Deleter
}
