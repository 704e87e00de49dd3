// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/sitecms/internal/mailer"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/service"
	"github.com/olegiv/sitecms/internal/storage"
	"github.com/olegiv/sitecms/internal/version"
)

// uploadsCacheMaxAge is one week.
const uploadsCacheMaxAge = 604800

// RouterDeps are the collaborators wired into the HTTP router.
type RouterDeps struct {
	DB       *sql.DB
	Sessions *scs.SessionManager
	Users    middleware.UserLoader

	Content  *service.ContentService
	Accounts *service.AccountService
	Events   *service.EventService
	Uploader *storage.Uploader
	Mailer   mailer.Mailer

	// ContactTo receives contact form messages.
	ContactTo string

	// LoginProtection, PublicLimiter and APILimiter are optional.
	LoginProtection *middleware.LoginProtection
	PublicLimiter   *middleware.GlobalRateLimiter
	APILimiter      *middleware.GlobalRateLimiter

	// CSRFKey is the 32-byte key for CSRF protection.
	CSRFKey []byte
	IsDev   bool

	// UploadsDir is served under /uploads/ when set.
	UploadsDir      string
	PublicListLimit int
	Version         version.Info

	// RequestTimeout defaults to 30 seconds.
	RequestTimeout time.Duration
}

// NewRouter builds the application router.
func NewRouter(d RouterDeps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.StripTrailingSlash(storage.LocalURLPrefix))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(d.IsDev)))
	r.Use(middleware.RequestPath)
	r.Use(d.Sessions.LoadAndSave)
	r.Use(middleware.LoadActor(d.Sessions, d.Users))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(d.CSRFKey, d.IsDev)))

	contentHandler := NewContentHandler(d.Content, d.PublicListLimit)
	accountsHandler := NewAccountsHandler(d.Accounts)
	authHandler := NewAuthHandler(d.Accounts, d.Sessions, d.LoginProtection)
	eventsHandler := NewEventsHandler(d.Events)
	uploadHandler := NewUploadHandler(d.Uploader, d.Events)
	contactHandler := NewContactHandler(d.Mailer, d.ContactTo)
	healthHandler := NewHealthHandler(d.DB, d.UploadsDir, d.Version)

	r.Route(RouteAPI, func(r chi.Router) {
		if d.APILimiter != nil {
			r.Use(d.APILimiter.Middleware())
		}

		// Public endpoints
		r.Group(func(r chi.Router) {
			if d.PublicLimiter != nil {
				r.Use(d.PublicLimiter.Middleware())
			}
			r.Get(RouteContent, contentHandler.PublicList)
			r.Get(RouteContent+RouteParamID, contentHandler.PublicGet)
			r.Post(RouteContact, contactHandler.Submit)
		})

		r.Route(RouteAuth, func(r chi.Router) {
			r.Post(RouteRegister, authHandler.Register)
			r.Group(func(r chi.Router) {
				if d.LoginProtection != nil {
					r.Use(d.LoginProtection.Middleware())
				}
				r.Post(RouteLogin, authHandler.Login)
			})
			r.Post(RouteLogout, authHandler.Logout)
			r.Get(RouteMe, authHandler.Me)
			r.Post(RouteForgotPassword, authHandler.ForgotPassword)
			r.Post(RouteResetPassword, authHandler.ResetPassword)
		})

		r.With(middleware.RequireAuth).Post(RouteUploads, uploadHandler.Upload)

		r.Route(RouteAdmin, func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			// Content: power users manage, admins delete.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePowerUser())
				r.Get(RouteContent, contentHandler.AdminList)
				r.Post(RouteContent, contentHandler.Create)
				r.Get(RouteContent+RouteParamID, contentHandler.AdminGet)
				r.Put(RouteContent+RouteParamID, contentHandler.Update)
				r.Post(RouteContent+RouteParamID+RouteSuffixPublish, contentHandler.Publish)
				r.Get(RouteStats, contentHandler.Stats)
				r.Get(RouteAccounts, accountsHandler.List)
			})

			// Accounts may read and edit themselves; the service decides.
			r.Get(RouteAccounts+RouteParamID, accountsHandler.Get)
			r.Put(RouteAccounts+RouteParamID, accountsHandler.Update)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Delete(RouteContent+RouteParamID, contentHandler.Delete)
				r.Post(RouteAccounts, accountsHandler.Create)
				r.Delete(RouteAccounts+RouteParamID, accountsHandler.Delete)
				r.Get(RouteEvents, eventsHandler.List)
			})
		})
	})

	r.Get(RouteHealth, healthHandler.Health)
	r.Get(RouteHealth+RouteLive, healthHandler.Liveness)
	r.Get(RouteHealth+RouteReady, healthHandler.Readiness)

	if d.UploadsDir != "" {
		uploads := middleware.StaticCache(uploadsCacheMaxAge)(
			http.StripPrefix(storage.LocalURLPrefix, http.FileServer(http.Dir(d.UploadsDir))))
		r.Handle(storage.LocalURLPrefix+"*", uploads)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	return r
}
