// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	err := m.Send(context.Background(), Message{
		To:      "a@example.com",
		Subject: "Reset your password",
		Body:    "token",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"outgoing email", "to=a@example.com", `subject="Reset your password"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestNewLogMailer_NilLogger(t *testing.T) {
	if m := NewLogMailer(nil); m.logger == nil {
		t.Error("NewLogMailer(nil) has nil logger")
	}
}
