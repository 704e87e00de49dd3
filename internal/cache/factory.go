// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Options selects and configures a cache backend.
type Options struct {
	// RedisURL selects the Redis backend when set.
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
}

// New returns a Redis cache when opts.RedisURL is set and reachable, and a
// memory cache otherwise. An unreachable Redis is logged, not fatal.
func New(opts Options) Cache {
	if opts.RedisURL != "" {
		ro := DefaultRedisOptions()
		ro.URL = opts.RedisURL
		if opts.Prefix != "" {
			ro.Prefix = opts.Prefix
		}
		if opts.DefaultTTL > 0 {
			ro.DefaultTTL = opts.DefaultTTL
		}
		rc, err := NewRedisCache(ro)
		if err == nil {
			slog.Info("using redis cache", "prefix", ro.Prefix)
			return rc
		}
		slog.Warn("redis cache unavailable, falling back to memory cache", "error", err)
	}

	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return NewMemoryCache(ttl, time.Minute)
}
