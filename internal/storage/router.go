// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"strings"
)

// Router writes new blobs to the object store when one is configured and
// to local disk otherwise. Deletes are routed by URL shape so blobs written
// under an earlier configuration can still be released.
type Router struct {
	local  Store
	remote Store
}

// NewRouter creates a router. remote may be nil.
func NewRouter(local, remote Store) *Router {
	return &Router{local: local, remote: remote}
}

// Put stores data in the active backend.
func (r *Router) Put(ctx context.Context, data []byte, name, contentType string) (string, error) {
	if r.remote != nil {
		return r.remote.Put(ctx, data, name, contentType)
	}
	if r.local == nil {
		return "", ErrNotConfigured
	}
	return r.local.Put(ctx, data, name, contentType)
}

// Delete releases url. URLs on amazonaws.com go to the object store, URLs
// under /uploads/ to local disk, and anything else (external links, empty
// strings) is ignored.
func (r *Router) Delete(ctx context.Context, url string) error {
	switch {
	case url == "":
		return nil
	case strings.Contains(url, "amazonaws.com"):
		if r.remote == nil {
			return ErrNotConfigured
		}
		return r.remote.Delete(ctx, url)
	case strings.HasPrefix(url, LocalURLPrefix):
		if r.local == nil {
			return ErrNotConfigured
		}
		return r.local.Delete(ctx, url)
	default:
		return nil
	}
}
