// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTokens struct {
	calledWith time.Time
	err        error
}

func (f *fakeTokens) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	f.calledWith = now
	return 2, f.err
}

type fakeEvents struct {
	olderThan time.Duration
}

func (f *fakeEvents) DeleteOldEvents(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 1, nil
}

type fakeCleaner struct{ calls int }

func (f *fakeCleaner) Cleanup() { f.calls++ }

type fakePruner struct{ calls int }

func (f *fakePruner) Prune() { f.calls++ }

func TestNew(t *testing.T) {
	s := New(nil)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger == nil {
		t.Error("New() should default the logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testLogger())
	if err := s.Add("noop", "does nothing", "@every 1h", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Start()
	s.Stop()
}

func TestAdd(t *testing.T) {
	s := New(testLogger())
	noop := func(context.Context) error { return nil }

	if err := s.Add("a", "", "*/5 * * * *", noop); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add("a", "", "*/5 * * * *", noop); err == nil {
		t.Error("Add() should reject a duplicate name")
	}
	if err := s.Add("bad", "", "not a schedule", noop); err == nil {
		t.Error("Add() should reject an invalid schedule")
	}
	if len(s.Jobs()) != 1 {
		t.Errorf("len(Jobs()) = %d, want 1", len(s.Jobs()))
	}
}

func TestJobsSorted(t *testing.T) {
	s := New(testLogger())
	noop := func(context.Context) error { return nil }
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := s.Add(name, "", "@hourly", noop); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}

	jobs := s.Jobs()
	want := []string{"alpha", "bravo", "charlie"}
	for i, name := range want {
		if jobs[i].Name != name {
			t.Errorf("Jobs()[%d].Name = %q, want %q", i, jobs[i].Name, name)
		}
	}
}

func TestTriggerNow(t *testing.T) {
	s := New(testLogger())
	ran := false
	wantErr := errors.New("boom")
	_ = s.Add("ok", "", "@hourly", func(context.Context) error { ran = true; return nil })
	_ = s.Add("fail", "", "@hourly", func(context.Context) error { return wantErr })

	if err := s.TriggerNow(context.Background(), "ok"); err != nil {
		t.Fatalf("TriggerNow(ok) error = %v", err)
	}
	if !ran {
		t.Error("TriggerNow(ok) did not run the job")
	}
	if err := s.TriggerNow(context.Background(), "fail"); !errors.Is(err, wantErr) {
		t.Errorf("TriggerNow(fail) error = %v, want %v", err, wantErr)
	}
	if err := s.TriggerNow(context.Background(), "missing"); err == nil {
		t.Error("TriggerNow(missing) should fail")
	}
}

func TestRegisterHousekeeping(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := &fakeTokens{}
	events := &fakeEvents{}
	login := &fakeCleaner{}
	api, public := &fakePruner{}, &fakePruner{}

	s := New(testLogger())
	err := s.RegisterHousekeeping(Housekeeping{
		ResetTokens:    tokens,
		Events:         events,
		EventRetention: 90 * 24 * time.Hour,
		Login:          login,
		Limiters:       []Pruner{api, public},
		Now:            func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("RegisterHousekeeping() error = %v", err)
	}
	if got := len(s.Jobs()); got != 3 {
		t.Fatalf("len(Jobs()) = %d, want 3", got)
	}

	ctx := context.Background()
	for _, name := range []string{JobResetTokens, JobEventRetention, JobRateLimiters} {
		if err := s.TriggerNow(ctx, name); err != nil {
			t.Fatalf("TriggerNow(%q) error = %v", name, err)
		}
	}

	if !tokens.calledWith.Equal(fixed) {
		t.Errorf("reset token cutoff = %v, want %v", tokens.calledWith, fixed)
	}
	if events.olderThan != 90*24*time.Hour {
		t.Errorf("event retention = %v, want 90 days", events.olderThan)
	}
	if login.calls != 1 || api.calls != 1 || public.calls != 1 {
		t.Errorf("cleanup calls = %d/%d/%d, want 1/1/1", login.calls, api.calls, public.calls)
	}
}

func TestRegisterHousekeepingSkipsMissing(t *testing.T) {
	s := New(testLogger())
	err := s.RegisterHousekeeping(Housekeeping{
		Events: &fakeEvents{}, // no retention configured
	})
	if err != nil {
		t.Fatalf("RegisterHousekeeping() error = %v", err)
	}
	if got := len(s.Jobs()); got != 0 {
		t.Errorf("len(Jobs()) = %d, want 0", got)
	}
}

func TestResetTokenJobError(t *testing.T) {
	s := New(testLogger())
	tokens := &fakeTokens{err: errors.New("db locked")}
	if err := s.RegisterHousekeeping(Housekeeping{ResetTokens: tokens}); err != nil {
		t.Fatalf("RegisterHousekeeping() error = %v", err)
	}
	if err := s.TriggerNow(context.Background(), JobResetTokens); err == nil {
		t.Error("TriggerNow should surface the store error")
	}
}
