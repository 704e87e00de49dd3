// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/sitecms/internal/imaging"
	"github.com/olegiv/sitecms/internal/util"
)

// Upload limits.
const (
	MaxUploadSize  = 10 << 20 // 10MB
	BannerMaxWidth = 1920
)

// Upload errors.
var (
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrFileType     = errors.New("file type is not allowed")
	ErrEmptyFile    = errors.New("file is empty")
)

// Uploader validates, normalises and stores uploaded images.
type Uploader struct {
	store     Putter
	processor *imaging.Processor
	maxSize   int64
	now       func() time.Time
}

// NewUploader creates an uploader. maxSize <= 0 selects MaxUploadSize.
func NewUploader(store Putter, maxSize int64) *Uploader {
	if maxSize <= 0 {
		maxSize = MaxUploadSize
	}
	return &Uploader{
		store:     store,
		processor: imaging.NewProcessor(BannerMaxWidth),
		maxSize:   maxSize,
		now:       time.Now,
	}
}

// MaxSize returns the size limit in bytes.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// Upload reads an image from r, re-encodes it and stores it under a unique
// name derived from filename. It returns the public URL.
func (u *Uploader) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(data)) > u.maxSize {
		return "", ErrFileTooLarge
	}
	if !imaging.IsImage(imaging.DetectMimeType(data)) {
		return "", ErrFileType
	}

	res, err := u.processor.Process(data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return "", ErrFileType
		}
		// Undecodable bytes behind a valid image signature.
		return "", fmt.Errorf("%w: %w", ErrFileType, err)
	}

	name := u.objectName(filename, res.Ext)
	return u.store.Put(ctx, res.Data, name, res.MimeType)
}

// objectName builds <unix-millis>-<uuid8>-<slug><ext>. The extension follows
// the re-encoded format, not the client's file name.
func (u *Uploader) objectName(filename, ext string) string {
	slug := util.FileSlug(filename)
	slug = strings.TrimSuffix(slug, filepath.Ext(slug))
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s%s", u.now().UnixMilli(), id, slug, ext)
}
