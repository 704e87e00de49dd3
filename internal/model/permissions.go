// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// HasPermission reports whether actor sits at or above required in the role
// hierarchy. Unrecognized roles on either side fail closed.
func HasPermission(actor, required Role) bool {
	actorRank, ok := roleRank[actor]
	if !ok {
		return false
	}
	requiredRank, ok := roleRank[required]
	if !ok {
		return false
	}
	return actorRank >= requiredRank
}

// CanCreateContent reports whether the role may create content items.
func CanCreateContent(r Role) bool { return HasPermission(r, RolePowerUser) }

// CanEditContent reports whether the role may edit content items.
func CanEditContent(r Role) bool { return HasPermission(r, RolePowerUser) }

// CanPublishContent reports whether the role may publish or unpublish content.
func CanPublishContent(r Role) bool { return HasPermission(r, RolePowerUser) }

// CanAccessAdmin reports whether the role may use the admin surface.
func CanAccessAdmin(r Role) bool { return HasPermission(r, RolePowerUser) }

// CanViewStats reports whether the role may read dashboard statistics.
func CanViewStats(r Role) bool { return HasPermission(r, RolePowerUser) }

// CanDeleteContent reports whether the role may delete content items.
func CanDeleteContent(r Role) bool { return HasPermission(r, RoleAdmin) }

// CanManageAccounts reports whether the role may create, delete and re-role accounts.
func CanManageAccounts(r Role) bool { return HasPermission(r, RoleAdmin) }
