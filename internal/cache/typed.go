// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed stores values of T as JSON under a common key prefix.
type Typed[T any] struct {
	cache  Cache
	prefix string
	ttl    time.Duration
}

// NewTyped wraps c. Every key is stored as prefix+key.
func NewTyped[T any](c Cache, prefix string, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, prefix: prefix, ttl: ttl}
}

// Get returns the cached value and true, or the zero value and false on a
// miss or a decode failure.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := t.cache.Get(ctx, t.prefix+key)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// Set stores v.
func (t *Typed[T]) Set(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, t.prefix+key, data, t.ttl)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Cache write failures are ignored since the loaded value is still valid.
func (t *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = t.Set(ctx, key, v)
	return v, nil
}

// Invalidate removes every key under the prefix.
func (t *Typed[T]) Invalidate(ctx context.Context) error {
	return t.cache.DeleteByPrefix(ctx, t.prefix)
}
