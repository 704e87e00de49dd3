// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/service"
)

// ContentHandler serves the public and admin content endpoints.
type ContentHandler struct {
	content     *service.ContentService
	publicLimit int
}

// NewContentHandler creates a content handler. publicLimit is the default
// page size of the public paginated list.
func NewContentHandler(content *service.ContentService, publicLimit int) *ContentHandler {
	return &ContentHandler{content: content, publicLimit: publicLimit}
}

// publishRequest is the body of the publish toggle.
type publishRequest struct {
	Published *bool `json:"published"`
}

// PublicList handles GET /api/content. Without all=true it returns the
// newest published summaries; with it, a filtered page of published items.
func (h *ContentHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	all, _ := strconv.ParseBool(values.Get("all"))
	q := listing.ParseQuery(values, h.publicLimit)

	res, err := h.content.ListPublic(r.Context(), all, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Page == nil {
		WriteSuccess(w, res.Recent, nil)
		return
	}

	writePublicPage(w, q, *res.Page)
}

// writePublicPage writes a public page whose links keep all=true.
func writePublicPage[T any](w http.ResponseWriter, q listing.Query, page listing.Page[T]) {
	links := listing.BuildLinks(PathPublicContent, q, page.TotalPages)
	for _, l := range []*string{&links.Self, &links.First, &links.Prev, &links.Next, &links.Last} {
		if *l != "" {
			*l = strings.Replace(*l, "?", "?all=true&", 1)
		}
	}
	WriteSuccess(w, page.Items, &Meta{
		Total:        page.Total,
		Page:         page.Page,
		Limit:        page.Limit,
		Pages:        page.TotalPages,
		Links:        links,
		PageNumbers:  listing.PageNumbers(page.Page, page.TotalPages),
		LimitOptions: listing.LimitPresets,
	})
}

// PublicGet handles GET /api/content/{id}.
func (h *ContentHandler) PublicGet(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	item, err := h.content.GetPublic(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, item, nil)
}

// AdminList handles GET /api/admin/content.
func (h *ContentHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := listing.ParseQuery(r.URL.Query(), listing.DefaultLimit)
	page, err := h.content.ListAdmin(r.Context(), middleware.GetActor(r), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WritePage(w, PathAdminContent, q, page)
}

// AdminGet handles GET /api/admin/content/{id}.
func (h *ContentHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	item, err := h.content.Get(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, item, nil)
}

// Create handles POST /api/admin/content.
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ContentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.content.Create(r.Context(), middleware.GetActor(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, item)
}

// Update handles PUT /api/admin/content/{id}.
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var in service.ContentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := h.content.Update(r.Context(), middleware.GetActor(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, item, nil)
}

// Publish handles POST /api/admin/content/{id}/publish.
func (h *ContentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Published == nil {
		WriteValidationError(w, map[string]string{"published": "Published flag is required"})
		return
	}
	item, err := h.content.SetPublished(r.Context(), middleware.GetActor(r), id, *req.Published)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, item, nil)
}

// Delete handles DELETE /api/admin/content/{id}.
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := h.content.Delete(r.Context(), middleware.GetActor(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/admin/stats.
func (h *ContentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.content.Stats(r.Context(), middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, stats, nil)
}
