// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Names of the housekeeping jobs.
const (
	JobResetTokens    = "reset_tokens"
	JobEventRetention = "event_retention"
	JobRateLimiters   = "rate_limiters"
)

// ResetTokenCleaner clears password reset tokens that expired before now.
// *store.Queries implements it.
type ResetTokenCleaner interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// EventPurger deletes audit events older than a retention period.
// *service.EventService implements it.
type EventPurger interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Cleaner drops stale in-memory state. *middleware.LoginProtection
// implements it.
type Cleaner interface {
	Cleanup()
}

// Pruner bounds an in-memory limiter cache. *middleware.GlobalRateLimiter
// implements it.
type Pruner interface {
	Prune()
}

// Housekeeping lists the collaborators of the core jobs. Nil fields and a
// zero EventRetention skip the corresponding job.
type Housekeeping struct {
	ResetTokens    ResetTokenCleaner
	Events         EventPurger
	EventRetention time.Duration
	Login          Cleaner
	Limiters       []Pruner

	// Now defaults to time.Now.
	Now func() time.Time
}

// RegisterHousekeeping adds the core maintenance jobs to s.
func (s *Scheduler) RegisterHousekeeping(h Housekeeping) error {
	now := h.Now
	if now == nil {
		now = time.Now
	}

	if h.ResetTokens != nil {
		err := s.Add(JobResetTokens, "Clear expired password reset tokens", "*/15 * * * *",
			func(ctx context.Context) error {
				n, err := h.ResetTokens.ClearExpiredResetTokens(ctx, now().UTC())
				if err != nil {
					return fmt.Errorf("clearing reset tokens: %w", err)
				}
				if n > 0 {
					s.logger.Info("cleared expired reset tokens", "count", n)
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	if h.Events != nil && h.EventRetention > 0 {
		err := s.Add(JobEventRetention, "Delete audit events past retention", "@daily",
			func(ctx context.Context) error {
				n, err := h.Events.DeleteOldEvents(ctx, h.EventRetention)
				if err != nil {
					return fmt.Errorf("deleting old events: %w", err)
				}
				if n > 0 {
					s.logger.Info("deleted old events", "count", n, "retention", h.EventRetention)
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	if h.Login != nil || len(h.Limiters) > 0 {
		err := s.Add(JobRateLimiters, "Drop stale login and rate limiter state", "@every 10m",
			func(context.Context) error {
				if h.Login != nil {
					h.Login.Cleanup()
				}
				for _, l := range h.Limiters {
					l.Prune()
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	return nil
}
