// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
)

// Role is one of the three fixed account roles. The zero value is RoleNone,
// which is what any unrecognized role string parses to; it carries no
// permissions.
type Role uint8

// Account roles in ascending order of privilege.
const (
	RoleNone Role = iota
	RoleUser
	RolePowerUser
	RoleAdmin
)

// Stored role names.
const (
	RoleNameUser      = "USER"
	RoleNamePowerUser = "POWER_USER"
	RoleNameAdmin     = "ADMIN"
)

// roleRank is the ordering table of the hierarchy. RoleNone is absent.
var roleRank = map[Role]int{
	RoleUser:      1,
	RolePowerUser: 2,
	RoleAdmin:     3,
}

// Roles lists every recognized role, lowest first.
var Roles = []Role{RoleUser, RolePowerUser, RoleAdmin}

// ParseRole converts a stored role name into a Role. Matching is exact;
// anything else yields RoleNone.
func ParseRole(s string) Role {
	switch s {
	case RoleNameUser:
		return RoleUser
	case RoleNamePowerUser:
		return RolePowerUser
	case RoleNameAdmin:
		return RoleAdmin
	default:
		return RoleNone
	}
}

// String returns the stored name of the role, or "" for RoleNone.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return RoleNameUser
	case RolePowerUser:
		return RoleNamePowerUser
	case RoleAdmin:
		return RoleNameAdmin
	default:
		return ""
	}
}

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input decodes to
// RoleNone so optional role fields can be omitted; any other unknown name is
// an error.
func (r *Role) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RoleNone
		return nil
	}
	parsed := ParseRole(string(b))
	if parsed == RoleNone {
		return fmt.Errorf("unknown role %q", string(b))
	}
	*r = parsed
	return nil
}
