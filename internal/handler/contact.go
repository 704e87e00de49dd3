// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/sitecms/internal/mailer"
)

// ContactHandler forwards public contact form submissions to the site
// administrator.
type ContactHandler struct {
	mailer mailer.Mailer
	to     string
}

// NewContactHandler creates a contact handler delivering to the given address.
func NewContactHandler(m mailer.Mailer, to string) *ContactHandler {
	return &ContactHandler{mailer: m, to: to}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=50"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Message = strings.TrimSpace(req.Message)

	if errs := validateRequest(req); len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	body := fmt.Sprintf("From: %s <%s>\nPhone: %s\n\n%s\n", req.Name, req.Email, req.Phone, req.Message)
	if err := h.mailer.Send(r.Context(), mailer.Message{
		To:      h.to,
		Subject: "Contact form: " + req.Name,
		Body:    body,
	}); err != nil {
		slog.ErrorContext(r.Context(), "failed to deliver contact form", "error", err)
		WriteInternalError(w)
		return
	}

	slog.InfoContext(r.Context(), "contact form submitted", "email", req.Email)
	WriteSuccess(w, messageResponse{Message: "Contact form submitted successfully"}, nil)
}
