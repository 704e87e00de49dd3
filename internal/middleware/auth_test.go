// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/store"
)

type fakeUsers struct {
	users map[int64]store.User
	err   error
	calls int
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (store.User, error) {
	f.calls++
	if f.err != nil {
		return store.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

// sessionRequest returns a request whose context carries a loaded session
// holding userID (0 means no login).
func sessionRequest(t *testing.T, sm *scs.SessionManager, userID int64) *http.Request {
	t.Helper()
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if userID != 0 {
		sm.Put(ctx, SessionKeyUserID, userID)
	}
	return httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body APIError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestLoadActor(t *testing.T) {
	users := &fakeUsers{users: map[int64]store.User{
		7: {ID: 7, Email: "pat@example.com", Name: "Pat", Role: model.RoleNamePowerUser},
	}}

	t.Run("no session", func(t *testing.T) {
		sm := scs.New()
		var got *model.Actor
		h := LoadActor(sm, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetActor(r)
		}))
		h.ServeHTTP(httptest.NewRecorder(), sessionRequest(t, sm, 0))
		if got != nil {
			t.Errorf("GetActor() = %+v, want nil", got)
		}
	})

	t.Run("logged in", func(t *testing.T) {
		sm := scs.New()
		var user *model.User
		var actor *model.Actor
		h := LoadActor(sm, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user = GetUser(r)
			actor = GetActor(r)
		}))
		h.ServeHTTP(httptest.NewRecorder(), sessionRequest(t, sm, 7))

		if user == nil || user.Email != "pat@example.com" {
			t.Fatalf("GetUser() = %+v", user)
		}
		if actor == nil || actor.ID != 7 || actor.Role != model.RolePowerUser {
			t.Errorf("GetActor() = %+v, want {7 POWER_USER}", actor)
		}
	})

	t.Run("deleted account destroys session", func(t *testing.T) {
		sm := scs.New()
		req := sessionRequest(t, sm, 99)
		var actor *model.Actor
		h := LoadActor(sm, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = GetActor(r)
		}))
		h.ServeHTTP(httptest.NewRecorder(), req)

		if actor != nil {
			t.Errorf("GetActor() = %+v, want nil", actor)
		}
		if id := sm.GetInt64(req.Context(), SessionKeyUserID); id != 0 {
			t.Errorf("session user_id = %d, want 0 after destroy", id)
		}
	})

	t.Run("store failure continues anonymously", func(t *testing.T) {
		sm := scs.New()
		failing := &fakeUsers{err: errors.New("database is locked")}
		called := false
		h := LoadActor(sm, failing)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			if GetActor(r) != nil {
				t.Error("expected no actor on store failure")
			}
		}))
		h.ServeHTTP(httptest.NewRecorder(), sessionRequest(t, sm, 7))
		if !called {
			t.Error("next handler not called")
		}
	})
}

func TestGetUser_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(req) != nil {
		t.Error("GetUser() on bare request should be nil")
	}
	if GetActor(req) != nil {
		t.Error("GetActor() on bare request should be nil")
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		user     *model.User
		min      model.Role
		wantCode int
		wantErr  string
	}{
		{"anonymous", nil, model.RoleUser, http.StatusUnauthorized, "unauthorized"},
		{"user below power user", &model.User{ID: 1, Role: model.RoleUser}, model.RolePowerUser, http.StatusForbidden, "forbidden"},
		{"power user allowed", &model.User{ID: 2, Role: model.RolePowerUser}, model.RolePowerUser, http.StatusNoContent, ""},
		{"admin allowed", &model.User{ID: 3, Role: model.RoleAdmin}, model.RolePowerUser, http.StatusNoContent, ""},
		{"power user below admin", &model.User{ID: 2, Role: model.RolePowerUser}, model.RoleAdmin, http.StatusForbidden, "forbidden"},
		{"unknown role fails closed", &model.User{ID: 4, Role: model.RoleNone}, model.RoleUser, http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/content", nil)
			if tt.user != nil {
				req = WithUser(req, *tt.user)
			}
			rec := httptest.NewRecorder()
			RequireRole(tt.min)(ok).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantErr != "" {
				if got := decodeAPIError(t, rec).Error.Code; got != tt.wantErr {
					t.Errorf("error code = %q, want %q", got, tt.wantErr)
				}
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := WithUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), model.User{ID: 1, Role: model.RoleUser})
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}
}

func TestRequestPath(t *testing.T) {
	var path, ip string
	h := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = GetRequestPath(r.Context())
		ip = logging.ClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/content/3", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if path != "/api/content/3" {
		t.Errorf("request path = %q", path)
	}
	if ip != "198.51.100.4" {
		t.Errorf("client ip = %q, want 198.51.100.4", ip)
	}
	if got := GetRequestPath(context.Background()); got != "" {
		t.Errorf("GetRequestPath(empty) = %q", got)
	}
}
