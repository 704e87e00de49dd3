// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	RouteAPI      = "/api"
	RouteContent  = "/content"
	RouteAdmin    = "/admin"
	RouteAccounts = "/accounts"
	RouteStats    = "/stats"
	RouteEvents   = "/events"
	RouteUploads  = "/uploads"
	RouteAuth     = "/auth"
	RouteContact  = "/contact"
	RouteHealth   = "/health"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteSuffixPublish toggles the published flag of a content item.
	RouteSuffixPublish = "/publish"

	RouteRegister       = "/register"
	RouteLogin          = "/login"
	RouteLogout         = "/logout"
	RouteMe             = "/me"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"

	RouteLive  = "/live"
	RouteReady = "/ready"
)

// Full paths used when building pagination links.
const (
	PathPublicContent = RouteAPI + RouteContent
	PathAdminContent  = RouteAPI + RouteAdmin + RouteContent
	PathAdminAccounts = RouteAPI + RouteAdmin + RouteAccounts
	PathAdminEvents   = RouteAPI + RouteAdmin + RouteEvents
)
