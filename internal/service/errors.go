// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/olegiv/sitecms/internal/model"
)

// Service errors. Handlers map them to HTTP statuses with errors.Is.
var (
	// ErrUnauthorized means no actor is attached to the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the actor's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the addressed record does not exist or is not visible.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable wraps persistence failures. Callers may retry later.
	ErrUnavailable = errors.New("service unavailable")
)

// ValidationError maps field names to messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty validation error.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it has errors and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// authorize checks that a is present and that allowed accepts its role.
func authorize(a *model.Actor, allowed func(model.Role) bool) error {
	if a == nil {
		return ErrUnauthorized
	}
	if !allowed(a.Role) {
		return ErrForbidden
	}
	return nil
}

// storeErr converts a persistence error: missing rows become ErrNotFound,
// anything else is wrapped as ErrUnavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
