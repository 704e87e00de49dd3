// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/service"
)

// AuthHandler serves registration, sign-in and password reset.
type AuthHandler struct {
	accounts *service.AccountService
	sm       *scs.SessionManager
	lp       *middleware.LoginProtection
}

// NewAuthHandler creates an auth handler. lp may be nil to disable
// account lockout.
func NewAuthHandler(accounts *service.AccountService, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{accounts: accounts, sm: sm, lp: lp}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register handles POST /api/auth/register. New accounts get the USER role
// and are signed in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.startSession(r, u.ID); err != nil {
		slog.ErrorContext(r.Context(), "failed to start session", "error", err, "user_id", u.ID)
		WriteInternalError(w)
		return
	}
	WriteCreated(w, u)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.lp != nil {
		if locked, remaining := h.lp.IsAccountLocked(req.Email); locked {
			w.Header().Set("Retry-After", strconv.Itoa(int(remaining.Round(time.Second).Seconds())))
			middleware.WriteAPIError(w, http.StatusTooManyRequests, "account_locked",
				"Too many failed login attempts. Please try again later.", nil)
			return
		}
	}

	u, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) && h.lp != nil {
			h.lp.RecordFailedAttempt(req.Email)
		}
		writeServiceError(w, r, err)
		return
	}
	if h.lp != nil {
		h.lp.RecordSuccessfulLogin(req.Email)
	}

	if err := h.startSession(r, u.ID); err != nil {
		slog.ErrorContext(r.Context(), "failed to start session", "error", err, "user_id", u.ID)
		WriteInternalError(w)
		return
	}
	WriteSuccess(w, u, nil)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sm.Destroy(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "failed to destroy session", "error", err)
		WriteInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := middleware.GetUser(r)
	if u == nil {
		middleware.WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		return
	}
	WriteSuccess(w, u, nil)
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, messageResponse{Message: "Password reset email sent"}, nil)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, messageResponse{Message: "Password has been reset"}, nil)
}

// startSession rotates the session token and stores the account id.
func (h *AuthHandler) startSession(r *http.Request, userID int64) error {
	if err := h.sm.RenewToken(r.Context()); err != nil {
		return err
	}
	h.sm.Put(r.Context(), middleware.SessionKeyUserID, userID)
	return nil
}
