// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/sitecms/internal/auth"
	"github.com/olegiv/sitecms/internal/model"
)

// Default admin identity used when no seed credentials are configured.
const (
	DefaultAdminEmail = "admin@example.com"
	DefaultAdminName  = "Administrator"
)

// SeedOptions configures the initial admin account.
type SeedOptions struct {
	Email    string
	Name     string
	Password string
}

// Seed creates the initial admin account unless an account with the same
// email already exists.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	if opts.Email == "" {
		opts.Email = DefaultAdminEmail
	}
	if opts.Name == "" {
		opts.Name = DefaultAdminName
	}
	if opts.Password == "" {
		return errors.New("seed admin password is empty")
	}

	queries := New(db)

	_, err := queries.GetUserByEmail(ctx, opts.Email)
	if err == nil {
		slog.Info("admin user already exists, skipping seed", "email", opts.Email)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        opts.Email,
		Name:         opts.Name,
		PasswordHash: passwordHash,
		Role:         model.RoleNameAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created admin user", "id", user.ID, "email", user.Email)

	return nil
}
