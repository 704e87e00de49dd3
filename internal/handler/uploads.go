// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"

	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/service"
	"github.com/olegiv/sitecms/internal/storage"
)

// multipartOverhead is the allowance for multipart headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

// UploadHandler accepts banner image uploads.
type UploadHandler struct {
	uploader *storage.Uploader
	events   service.EventRecorder
}

// NewUploadHandler creates an upload handler. events may be nil.
func NewUploadHandler(uploader *storage.Uploader, events service.EventRecorder) *UploadHandler {
	return &UploadHandler{uploader: uploader, events: events}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /api/uploads with a multipart "file" field and
// returns the stored file's URL.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploader.MaxSize()+multipartOverhead)
	if err := r.ParseMultipartForm(h.uploader.MaxSize()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, r, storage.ErrFileTooLarge)
			return
		}
		WriteBadRequest(w, "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteBadRequest(w, "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	url, err := h.uploader.Upload(r.Context(), file, header.Filename)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.events != nil {
		h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryUpload, "File uploaded",
			middleware.GetActor(r), map[string]any{"url": url, "filename": header.Filename})
	}
	WriteCreated(w, uploadResponse{URL: url})
}
