// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// SessionKeyUserID is the session key holding the logged-in account id.
const SessionKeyUserID = "user_id"

// UserLoader looks up the account behind a session. *store.Queries
// implements it.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (store.User, error)
}

// LoadActor creates middleware that loads the session's account into the
// request context. Requests without a session, or whose account no longer
// exists, continue unauthenticated.
func LoadActor(sm *scs.SessionManager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			u, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					// Account was deleted; the session is stale.
					_ = sm.Destroy(r.Context())
				} else {
					slog.ErrorContext(r.Context(), "failed to load session user", "error", err, "user_id", userID)
				}
				next.ServeHTTP(w, r)
				return
			}

			user := u.Model()
			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = logging.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current account from the request context.
// Returns nil if the request is unauthenticated.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(model.User)
	if !ok {
		return nil
	}
	return &user
}

// GetActor returns the identity of the current request, or nil when the
// request is unauthenticated.
func GetActor(r *http.Request) *model.Actor {
	if user := GetUser(r); user != nil {
		return user.Actor()
	}
	return nil
}

// WithUser returns a copy of r carrying user as the current account.
func WithUser(r *http.Request, user model.User) *http.Request {
	ctx := context.WithValue(r.Context(), ContextKeyUser, user)
	return r.WithContext(logging.WithUserID(ctx, user.ID))
}

// RequestPath creates middleware that stores the request path and client
// address in the context. The logging handler records both with any event
// written during the request.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		ctx = logging.WithRequestPath(ctx, r.URL.Path)
		ctx = logging.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}

// RequireAuth creates middleware that rejects unauthenticated requests
// with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole creates middleware that requires a minimum account role.
// Roles are hierarchical: ADMIN > POWER_USER > USER. Unauthenticated
// requests get 401, authenticated ones below minRole get 403.
func RequireRole(minRole model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
				return
			}

			if !model.HasPermission(user.Role, minRole) {
				slog.WarnContext(r.Context(), "access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role.String(),
					"required_role", minRole.String(),
				)
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Unauthorized", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePowerUser is shorthand for RequireRole(model.RolePowerUser).
func RequirePowerUser() func(http.Handler) http.Handler {
	return RequireRole(model.RolePowerUser)
}

// RequireAdmin is shorthand for RequireRole(model.RoleAdmin).
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)
}
