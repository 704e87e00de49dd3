// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/service"
)

// EventsHandler serves the event log to administrators.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(events *service.EventService) *EventsHandler {
	return &EventsHandler{events: events}
}

// List handles GET /api/admin/events?level&category&page&limit.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := listing.ParseQuery(values, listing.DefaultLimit)
	page, err := h.events.List(r.Context(), middleware.GetActor(r), q, values.Get("level"), values.Get("category"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WritePage(w, PathAdminEvents, q, page)
}
