// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the JSON HTTP handlers and route table of the CMS.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/service"
	"github.com/olegiv/sitecms/internal/storage"
)

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata for list responses.
// LimitOptions lists the page sizes a client may offer.
type Meta struct {
	Total        int64         `json:"total"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	Pages        int           `json:"pages"`
	Links        listing.Links `json:"links"`
	PageNumbers  []int         `json:"page_numbers,omitempty"`
	LimitOptions []int         `json:"limit_options,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 response wrapping data.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created response wrapping data.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WritePage writes one page of a list with its navigation metadata.
// basePath is the request path the links point back to.
func WritePage[T any](w http.ResponseWriter, basePath string, q listing.Query, page listing.Page[T]) {
	WriteSuccess(w, page.Items, &Meta{
		Total:        page.Total,
		Page:         page.Page,
		Limit:        page.Limit,
		Pages:        page.TotalPages,
		Links:        listing.BuildLinks(basePath, q, page.TotalPages),
		PageNumbers:  listing.PageNumbers(page.Page, page.TotalPages),
		LimitOptions: listing.LimitPresets,
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusBadRequest, "bad_request", message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	middleware.WriteAPIError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteValidationError writes a 422 response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	middleware.WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// WriteInternalError writes a 500 response. The cause is never sent.
func WriteInternalError(w http.ResponseWriter) {
	middleware.WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
}

// writeServiceError maps a service error onto its HTTP status. Authorization
// failures never carry the reason.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr.Fields)
	case errors.Is(err, service.ErrUnauthorized):
		middleware.WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
	case errors.Is(err, service.ErrForbidden):
		middleware.WriteAPIError(w, http.StatusForbidden, "forbidden", "Unauthorized", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
	case errors.Is(err, service.ErrNotFound):
		WriteNotFound(w, "Not found")
	case errors.Is(err, storage.ErrFileTooLarge):
		middleware.WriteAPIError(w, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the maximum upload size", nil)
	case errors.Is(err, storage.ErrFileType):
		WriteValidationError(w, map[string]string{"file": "File must be a JPEG, PNG, GIF or WebP image"})
	case errors.Is(err, storage.ErrEmptyFile):
		WriteValidationError(w, map[string]string{"file": "File is empty"})
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		WriteInternalError(w)
	}
}
