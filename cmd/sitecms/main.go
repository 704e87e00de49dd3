// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/config"
	"github.com/olegiv/sitecms/internal/handler"
	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/mailer"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/scheduler"
	"github.com/olegiv/sitecms/internal/service"
	"github.com/olegiv/sitecms/internal/session"
	"github.com/olegiv/sitecms/internal/storage"
	"github.com/olegiv/sitecms/internal/store"
	"github.com/olegiv/sitecms/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "sitecms - small content management server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_SESSION_SECRET     Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_DB_PATH            SQLite database path (default: ./data/sitecms.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_SERVER_HOST        Listen host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_LOG_LEVEL          debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_UPLOADS_DIR        Local uploads directory (default: ./uploads)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_S3_BUCKET          S3 bucket for uploads in production (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_REDIS_URL          Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_DO_SEED            Create the admin account on startup\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_ADMIN_EMAIL        Admin email; also receives contact form mail\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SITECMS_ADMIN_PASSWORD     Admin password (required with SITECMS_DO_SEED)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("sitecms %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	ctx := context.Background()
	slog.Info("running database migrations")
	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Mirror WARN and ERROR records into the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedOptions{
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	queries := store.New(db)

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	contentCache := cache.New(cache.Options{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTL,
	})
	defer func() { _ = contentCache.Close() }()

	// Blob storage: S3 in production when a bucket is configured, local
	// disk otherwise. Local deletes keep working for older uploads.
	var remote storage.Store
	if cfg.UseObjectStore() {
		s3Store, err := storage.NewS3StoreFromEnv(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return fmt.Errorf("initializing object store: %w", err)
		}
		remote = s3Store
		slog.Info("using S3 object store", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
	}
	blobs := storage.NewRouter(storage.NewLocalStore(cfg.UploadsDir), remote)

	mail := mailer.NewLogMailer(logger)
	events := service.NewEventService(db)

	contentService := service.NewContentService(service.ContentDeps{
		Store:    queries,
		Blobs:    blobs,
		Cache:    contentCache,
		Events:   events,
		Logger:   logger,
		CacheTTL: cfg.CacheTTL,
	})
	accountService := service.NewAccountService(service.AccountDeps{
		Store:             queries,
		DB:                db,
		Cache:             contentCache,
		Mailer:            mail,
		Events:            events,
		Logger:            logger,
		ResetTokenTTL:     cfg.ResetTokenTTL,
		MinPasswordLength: cfg.MinPasswordLength,
		BaseURL:           cfg.BaseURL,
	})

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	// Public endpoints: 10 req/s per IP, burst 20
	publicLimiter := middleware.NewGlobalRateLimiter(10, 20)
	// API: 100 req/s per IP, burst 200
	apiLimiter := middleware.NewGlobalRateLimiter(100, 200)

	router := handler.NewRouter(handler.RouterDeps{
		DB:              db,
		Sessions:        sessionManager,
		Users:           queries,
		Content:         contentService,
		Accounts:        accountService,
		Events:          events,
		Uploader:        storage.NewUploader(blobs, cfg.MaxUploadSize),
		Mailer:          mail,
		ContactTo:       cfg.AdminEmail,
		LoginProtection: loginProtection,
		PublicLimiter:   publicLimiter,
		APILimiter:      apiLimiter,
		CSRFKey:         []byte(cfg.SessionSecret),
		IsDev:           cfg.IsDevelopment(),
		UploadsDir:      cfg.UploadsDir,
		PublicListLimit: cfg.PublicListLimit,
		Version:         versionInfo,
	})

	sched := scheduler.New(logger)
	if err := sched.RegisterHousekeeping(scheduler.Housekeeping{
		ResetTokens:    queries,
		Events:         events,
		EventRetention: cfg.EventRetention,
		Login:          loginProtection,
		Limiters:       []scheduler.Pruner{publicLimiter, apiLimiter},
	}); err != nil {
		return fmt.Errorf("registering scheduled jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads and slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
