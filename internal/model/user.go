// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including accounts, content items, roles and event log entries.
package model

import (
	"database/sql"
	"time"
)

// User represents an account.
type User struct {
	ID               int64        `json:"id"`
	Email            string       `json:"email"`
	Name             string       `json:"name"`
	PasswordHash     string       `json:"-"` // Never expose in JSON
	Role             Role         `json:"role"`
	ResetToken       string       `json:"-"`
	ResetTokenExpiry sql.NullTime `json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	LastLoginAt      sql.NullTime `json:"last_login_at,omitzero"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor returns the identity the user acts with.
func (u *User) Actor() *Actor {
	return &Actor{ID: u.ID, Role: u.Role}
}

// Actor is the identity performing a request. A nil *Actor means the
// request is unauthenticated.
type Actor struct {
	ID   int64
	Role Role
}

// Is reports whether the actor is the account with the given id.
func (a *Actor) Is(id int64) bool {
	return a != nil && a.ID == id
}

// RoleOf returns the role of a possibly nil actor.
func RoleOf(a *Actor) Role {
	if a == nil {
		return RoleNone
	}
	return a.Role
}
