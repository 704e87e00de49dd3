// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the business rules: the content lifecycle, account
// management and the audit event log. Every operation takes the acting
// account explicitly and checks it against the permission evaluator.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/store"
)

// EventRecorder writes audit events. A failure to record is never fatal to
// the operation that triggered it.
type EventRecorder interface {
	Record(ctx context.Context, level, category, message string, actor *model.Actor, metadata map[string]any)
}

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
		now:     time.Now,
	}
}

// LogEvent creates a new event log entry. The client address is taken from
// the request context.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(context.WithoutCancel(ctx), store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		IpAddress: logging.ClientIP(ctx),
		Metadata:  metadataJSON,
		CreatedAt: s.now().UTC(),
	})
	return err
}

// Record implements EventRecorder. Failures are logged at debug level only,
// since a warning would be mirrored back into the same table.
func (s *EventService) Record(ctx context.Context, level, category, message string, actor *model.Actor, metadata map[string]any) {
	var userID *int64
	if actor != nil {
		userID = &actor.ID
	}
	if err := s.LogEvent(ctx, level, category, message, userID, metadata); err != nil {
		slog.Debug("failed to record event", "error", err, "message", message)
	}
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message string, userID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, userID, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message string, userID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, userID, metadata)
}

// List returns a page of events, newest first. Empty level or category
// disables that filter. Only administrators may read the log.
func (s *EventService) List(ctx context.Context, actor *model.Actor, q listing.Query, level, category string) (listing.Page[model.Event], error) {
	if err := authorize(actor, model.CanManageAccounts); err != nil {
		return listing.Page[model.Event]{}, err
	}

	rows, total, err := listing.ListAndCount(
		func() ([]store.Event, error) {
			return s.queries.ListEvents(ctx, store.ListEventsParams{
				Level:    level,
				Category: category,
				Limit:    int64(q.Limit),
				Offset:   int64(q.Offset()),
			})
		},
		func() (int64, error) {
			return s.queries.CountEvents(ctx, store.CountEventsParams{Level: level, Category: category})
		},
	)
	if err != nil {
		return listing.Page[model.Event]{}, storeErr("listing events", err)
	}

	items := make([]model.Event, len(rows))
	for i, r := range rows {
		items[i] = r.Model()
	}
	return listing.NewPage(q, items, total), nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UTC()
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
