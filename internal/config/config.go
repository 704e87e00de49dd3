// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application settings from SITECMS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"SITECMS_DB_PATH" envDefault:"./data/sitecms.db"`
	SessionSecret string `env:"SITECMS_SESSION_SECRET,required"`
	ServerHost    string `env:"SITECMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"SITECMS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"SITECMS_ENV" envDefault:"development"`
	LogLevel      string `env:"SITECMS_LOG_LEVEL" envDefault:"info"`
	BaseURL       string `env:"SITECMS_BASE_URL" envDefault:"http://localhost:8080"`

	// Uploads
	UploadsDir    string `env:"SITECMS_UPLOADS_DIR" envDefault:"./uploads"`
	MaxUploadSize int64  `env:"SITECMS_MAX_UPLOAD_SIZE" envDefault:"10485760"` // bytes
	S3Bucket      string `env:"SITECMS_S3_BUCKET"`                             // Object store bucket, production only
	S3Region      string `env:"SITECMS_S3_REGION" envDefault:"us-east-1"`

	// Cache configuration
	RedisURL    string        `env:"SITECMS_REDIS_URL"` // Optional Redis URL for distributed caching
	CachePrefix string        `env:"SITECMS_CACHE_PREFIX" envDefault:"sitecms:"`
	CacheTTL    time.Duration `env:"SITECMS_CACHE_TTL" envDefault:"5m"`

	// Listing
	PublicListLimit int `env:"SITECMS_PUBLIC_LIST_LIMIT" envDefault:"10"` // Size of the capped public list

	// Accounts
	ResetTokenTTL     time.Duration `env:"SITECMS_RESET_TOKEN_TTL" envDefault:"1h"`
	MinPasswordLength int           `env:"SITECMS_MIN_PASSWORD_LENGTH" envDefault:"8"`
	EventRetention    time.Duration `env:"SITECMS_EVENT_RETENTION" envDefault:"720h"`

	// Seeding configuration
	DoSeed        bool   `env:"SITECMS_DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"SITECMS_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"SITECMS_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseObjectStore returns true if uploads go to the S3 bucket.
func (c Config) UseObjectStore() bool {
	return c.IsProduction() && c.S3Bucket != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("SITECMS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SITECMS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("SITECMS_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}
	if c.PublicListLimit < 1 {
		return fmt.Errorf("SITECMS_PUBLIC_LIST_LIMIT must be positive, got %d", c.PublicListLimit)
	}
	if c.MinPasswordLength < 6 {
		return fmt.Errorf("SITECMS_MIN_PASSWORD_LENGTH must be at least 6, got %d", c.MinPasswordLength)
	}
	if c.ResetTokenTTL <= 0 {
		return errors.New("SITECMS_RESET_TOKEN_TTL must be positive")
	}
	if c.DoSeed && c.AdminPassword == "" {
		return errors.New("SITECMS_ADMIN_PASSWORD is required when SITECMS_DO_SEED is set")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	classes := []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	}
	n := 0
	for _, class := range classes {
		if strings.ContainsAny(s, class) {
			n++
		}
	}
	return n >= 3
}
