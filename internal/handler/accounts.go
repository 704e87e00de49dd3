// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/service"
)

// AccountsHandler serves the admin account endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler creates an accounts handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// List handles GET /api/admin/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.DefaultLimit)
	page, err := h.accounts.List(r.Context(), middleware.GetActor(r), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WritePage(w, PathAdminAccounts, q, page)
}

// Get handles GET /api/admin/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	u, err := h.accounts.Get(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, u, nil)
}

// Create handles POST /api/admin/accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.accounts.Create(r.Context(), middleware.GetActor(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, u)
}

// Update handles PUT /api/admin/accounts/{id}.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var in service.AccountInput
	if !decodeJSON(w, r, &in) {
		return
	}
	u, err := h.accounts.Update(r.Context(), middleware.GetActor(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, u, nil)
}

// Delete handles DELETE /api/admin/accounts/{id}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := h.accounts.Delete(r.Context(), middleware.GetActor(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
