// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitecms/internal/auth"
	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/mailer"
	"github.com/olegiv/sitecms/internal/middleware"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/service"
	"github.com/olegiv/sitecms/internal/session"
	"github.com/olegiv/sitecms/internal/storage"
	"github.com/olegiv/sitecms/internal/store"
	"github.com/olegiv/sitecms/internal/testutil"
	"github.com/olegiv/sitecms/internal/version"
)

const testPassword = "correct-horse-battery"

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

// countingBlobs wraps a blob store and counts releases per URL.
type countingBlobs struct {
	storage.Store

	mu       sync.Mutex
	released map[string]int
}

func (b *countingBlobs) Delete(ctx context.Context, url string) error {
	b.mu.Lock()
	b.released[url]++
	b.mu.Unlock()
	return b.Store.Delete(ctx, url)
}

func (b *countingBlobs) releases(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released[url]
}

type testApp struct {
	server  *httptest.Server
	queries *store.Queries
	mail    *captureMailer
	blobs   *countingBlobs
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	queries := store.New(db)
	events := service.NewEventService(db)
	mail := &captureMailer{}
	uploadsDir := t.TempDir()
	blobs := &countingBlobs{
		Store:    storage.NewRouter(storage.NewLocalStore(uploadsDir), nil),
		released: make(map[string]int),
	}
	logger := testutil.TestLoggerSilent()

	router := NewRouter(RouterDeps{
		DB:       db,
		Sessions: session.New(db, true),
		Users:    queries,
		Content: service.NewContentService(service.ContentDeps{
			Store:  queries,
			Blobs:  blobs,
			Events: events,
			Logger: logger,
		}),
		Accounts: service.NewAccountService(service.AccountDeps{
			Store:   queries,
			DB:      db,
			Mailer:  mail,
			Events:  events,
			Logger:  logger,
			BaseURL: "http://localhost:8080",
		}),
		Events:          events,
		Uploader:        storage.NewUploader(blobs, 0),
		Mailer:          mail,
		ContactTo:       "admin@example.com",
		LoginProtection: middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig()),
		CSRFKey:         []byte("0123456789abcdef0123456789abcdef"),
		IsDev:           true,
		UploadsDir:      uploadsDir,
		PublicListLimit: 2,
		Version:         version.Info{Version: "test"},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{server: srv, queries: queries, mail: mail, blobs: blobs}
}

// createAccount inserts an account that can sign in with testPassword.
func (a *testApp) createAccount(t *testing.T, email string, role model.Role) int64 {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	u, err := a.queries.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		Name:         strings.Split(email, "@")[0],
		PasswordHash: hash,
		Role:         role.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	return u.ID
}

// client returns an HTTP client with its own session cookie jar.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// login returns a client signed in as email.
func (a *testApp) login(t *testing.T, email string) *http.Client {
	t.Helper()
	c := a.client(t)
	resp := a.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return c
}

func (a *testApp) do(t *testing.T, c *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *Meta           `json:"meta"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func decodeData[T any](t *testing.T, resp *http.Response) (T, *Meta) {
	t.Helper()
	env := decode(t, resp)
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v, env.Meta
}

func TestContentLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "admin@example.com", model.RoleAdmin)
	app.createAccount(t, "editor@example.com", model.RolePowerUser)

	editor := app.login(t, "editor@example.com")
	admin := app.login(t, "admin@example.com")
	anon := app.client(t)

	const banner = "/uploads/banner.png"

	// Draft is invisible to the public.
	resp := app.do(t, editor, http.MethodPost, "/api/admin/content", map[string]any{
		"title":        "First post",
		"content":      "<p>Hello <script>alert(1)</script>world</p>",
		"tags":         "go, cms",
		"banner_image": banner,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created, _ := decodeData[model.Content](t, resp)
	assert.False(t, created.Published)
	assert.NotContains(t, created.Content, "<script>")
	assert.Equal(t, banner, created.BannerImage)

	resp = app.do(t, anon, http.MethodGet, fmt.Sprintf("/api/content/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The admin list shows drafts.
	resp = app.do(t, editor, http.MethodGet, "/api/admin/content", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminItems, adminMeta := decodeData[[]model.Content](t, resp)
	require.NotNil(t, adminMeta)
	assert.Equal(t, int64(1), adminMeta.Total)
	require.Len(t, adminItems, 1)
	assert.Equal(t, created.ID, adminItems[0].ID)
	assert.False(t, adminItems[0].Published)

	// Publish, then the public can see it.
	resp = app.do(t, editor, http.MethodPost, fmt.Sprintf("/api/admin/content/%d/publish", created.ID),
		map[string]bool{"published": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, anon, http.MethodGet, fmt.Sprintf("/api/content/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item, _ := decodeData[model.Content](t, resp)
	assert.Equal(t, "First post", item.Title)

	resp = app.do(t, anon, http.MethodGet, "/api/content", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recent, meta := decodeData[[]model.ContentSummary](t, resp)
	assert.Nil(t, meta)
	require.Len(t, recent, 1)
	assert.Equal(t, created.ID, recent[0].ID)

	// Power users cannot delete.
	resp = app.do(t, editor, http.MethodDelete, fmt.Sprintf("/api/admin/content/%d", created.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Unauthorized", env.Error.Message)

	assert.Zero(t, app.blobs.releases(banner))

	resp = app.do(t, admin, http.MethodDelete, fmt.Sprintf("/api/admin/content/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, app.blobs.releases(banner))

	resp = app.do(t, anon, http.MethodGet, fmt.Sprintf("/api/content/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, admin, http.MethodGet, "/api/admin/content", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminItems, adminMeta = decodeData[[]model.Content](t, resp)
	assert.Empty(t, adminItems)
	assert.Zero(t, adminMeta.Total)

	resp = app.do(t, anon, http.MethodGet, "/api/content", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recent, _ = decodeData[[]model.ContentSummary](t, resp)
	assert.Empty(t, recent)

	// A second delete finds nothing and releases nothing.
	resp = app.do(t, admin, http.MethodDelete, fmt.Sprintf("/api/admin/content/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, app.blobs.releases(banner))
}

func TestPublicListPagination(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "editor@example.com", model.RolePowerUser)
	editor := app.login(t, "editor@example.com")

	for i := 1; i <= 5; i++ {
		resp := app.do(t, editor, http.MethodPost, "/api/admin/content", map[string]any{
			"title":     fmt.Sprintf("Post %d", i),
			"content":   "body",
			"published": true,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	anon := app.client(t)
	resp := app.do(t, anon, http.MethodGet, "/api/content?all=true&page=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, meta := decodeData[[]model.Content](t, resp)
	require.NotNil(t, meta)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(5), meta.Total)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 3, meta.Pages)
	assert.Contains(t, meta.Links.Next, "all=true")
	assert.Contains(t, meta.Links.Next, "page=3")
	assert.Equal(t, listing.LimitPresets, meta.LimitOptions)

	resp = app.do(t, anon, http.MethodGet, "/api/content?all=true&page=9", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items, _ = decodeData[[]model.Content](t, resp)
	assert.Empty(t, items)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "user@example.com", model.RoleUser)
	user := app.login(t, "user@example.com")
	anon := app.client(t)

	tests := []struct {
		name   string
		client *http.Client
		method string
		path   string
		want   int
	}{
		{"anonymous admin list", anon, http.MethodGet, "/api/admin/content", http.StatusUnauthorized},
		{"user admin list", user, http.MethodGet, "/api/admin/content", http.StatusForbidden},
		{"user stats", user, http.MethodGet, "/api/admin/stats", http.StatusForbidden},
		{"user events", user, http.MethodGet, "/api/admin/events", http.StatusForbidden},
		{"user account list", user, http.MethodGet, "/api/admin/accounts", http.StatusForbidden},
		{"anonymous upload", anon, http.MethodPost, "/api/uploads", http.StatusUnauthorized},
		{"anonymous me", anon, http.MethodGet, "/api/auth/me", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.do(t, tt.client, tt.method, tt.path, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRegisterAndMe(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp := app.do(t, c, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "new@example.com",
		"name":     "New",
		"password": testPassword,
		"role":     "ADMIN",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, c, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me, _ := decodeData[model.User](t, resp)
	assert.Equal(t, "new@example.com", me.Email)
	assert.Equal(t, model.RoleUser, me.Role)

	resp = app.do(t, c, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.do(t, c, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	resp := app.do(t, app.client(t), http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "password")
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "user@example.com", model.RoleUser)
	c := app.client(t)

	resp := app.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_credentials", env.Error.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "user@example.com", model.RoleUser)
	c := app.client(t)

	resp := app.do(t, c, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "user@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sent := app.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "user@example.com", sent[0].To)

	u, err := app.queries.GetUserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.True(t, u.ResetToken.Valid)

	resp = app.do(t, c, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"token":    u.ResetToken.String,
		"password": "a-brand-new-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "a-brand-new-password",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountSelfUpdate(t *testing.T) {
	app := newTestApp(t)
	userID := app.createAccount(t, "user@example.com", model.RoleUser)
	otherID := app.createAccount(t, "other@example.com", model.RoleUser)
	user := app.login(t, "user@example.com")

	resp := app.do(t, user, http.MethodPut, fmt.Sprintf("/api/admin/accounts/%d", userID), map[string]string{
		"email": "user@example.com",
		"name":  "Renamed",
		"role":  "ADMIN",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated, _ := decodeData[model.User](t, resp)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, model.RoleUser, updated.Role)

	resp = app.do(t, user, http.MethodPut, fmt.Sprintf("/api/admin/accounts/%d", otherID), map[string]string{
		"email": "other@example.com",
		"name":  "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminManagesAccounts(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "admin@example.com", model.RoleAdmin)
	admin := app.login(t, "admin@example.com")

	resp := app.do(t, admin, http.MethodPost, "/api/admin/accounts", map[string]string{
		"email":    "editor@example.com",
		"name":     "Editor",
		"password": testPassword,
		"role":     "POWER_USER",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created, _ := decodeData[model.User](t, resp)
	assert.Equal(t, model.RolePowerUser, created.Role)

	resp = app.do(t, admin, http.MethodGet, "/api/admin/accounts?role=POWER_USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, meta := decodeData[[]model.User](t, resp)
	require.NotNil(t, meta)
	require.Len(t, users, 1)
	assert.Equal(t, created.ID, users[0].ID)

	resp = app.do(t, admin, http.MethodDelete, fmt.Sprintf("/api/admin/accounts/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.do(t, admin, http.MethodGet, "/api/admin/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events, _ := decodeData[[]model.Event](t, resp)
	assert.NotEmpty(t, events)
}

func TestBadRequests(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "editor@example.com", model.RolePowerUser)
	editor := app.login(t, "editor@example.com")

	resp := app.do(t, editor, http.MethodGet, "/api/admin/content/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/admin/content", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	raw, err := editor.Do(req)
	require.NoError(t, err)
	defer func() { _ = raw.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp = app.do(t, editor, http.MethodPost, "/api/admin/content", map[string]string{"title": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = app.do(t, editor, http.MethodPost, "/api/admin/content/1/publish", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = app.do(t, editor, http.MethodGet, "/api/admin/content/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postFile(t *testing.T, app *testApp, c *http.Client, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/uploads", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestUploadAndServe(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "user@example.com", model.RoleUser)
	user := app.login(t, "user@example.com")

	resp := postFile(t, app, user, "banner.png", testPNG(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out, _ := decodeData[uploadResponse](t, resp)
	require.True(t, strings.HasPrefix(out.URL, storage.LocalURLPrefix), out.URL)

	resp = app.do(t, app.client(t), http.MethodGet, out.URL, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=604800")

	resp = postFile(t, app, user, "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestContactForm(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp := app.do(t, c, http.MethodPost, "/api/contact", map[string]string{
		"name":    "Visitor",
		"email":   "visitor@example.com",
		"message": "Hello there",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sent := app.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "Hello there")

	resp = app.do(t, c, http.MethodPost, "/api/contact", map[string]string{
		"name":  "Visitor",
		"email": "Visitor <visitor@example.com>",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "email")
	assert.Contains(t, env.Error.Details, "message")
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp := app.do(t, c, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = app.do(t, c, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Anonymous callers only see the overall status.
	resp = app.do(t, c, http.MethodGet, "/health", nil)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "status")
	assert.NotContains(t, body, "checks")
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)
	resp := app.do(t, app.client(t), http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, app.client(t), http.MethodGet, "/api/content/", nil)
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
}
