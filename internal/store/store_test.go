// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "sitecms-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() { _ = db.Close() }
}

func createTestUser(t *testing.T, q *Queries, email, name, role string) User {
	t.Helper()
	now := time.Now().UTC()
	u, err := q.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", email, err)
	}
	return u
}

func createTestBlog(t *testing.T, q *Queries, title, tags string, published bool, authorID int64, createdAt time.Time) Blog {
	t.Helper()
	b, err := q.CreateBlog(context.Background(), CreateBlogParams{
		Title:     title,
		Content:   "<p>Body of " + title + "</p>",
		Tags:      tags,
		Published: published,
		AuthorID:  authorID,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("CreateBlog(%q): %v", title, err)
	}
	return b
}

func TestMigrateIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := SchemaVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v < 4 {
		t.Errorf("SchemaVersion = %d, want >= 4", v)
	}
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	user := createTestUser(t, q, "Test@Example.com", "Test User", "POWER_USER")

	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if user.Role != "POWER_USER" {
		t.Errorf("Role = %q, want %q", user.Role, "POWER_USER")
	}
	if user.EmailFolded != "test@example.com" {
		t.Errorf("EmailFolded = %q, want %q", user.EmailFolded, "test@example.com")
	}

	got, err := q.GetUserByEmail(context.Background(), "Test@Example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetUserByEmail ID = %d, want %d", got.ID, user.ID)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	createTestUser(t, q, "dup@example.com", "One", "USER")

	now := time.Now().UTC()
	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Email: "dup@example.com", Name: "Two", PasswordHash: "h", Role: "USER",
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	now := time.Now().UTC()
	_, err := New(db).CreateUser(context.Background(), CreateUserParams{
		Email: "x@example.com", Name: "X", PasswordHash: "h", Role: "superuser",
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected check constraint error")
	}
}

func TestListUsersFilters(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	createTestUser(t, q, "alice@example.com", "Alice Admin", "ADMIN")
	createTestUser(t, q, "bob@example.com", "Bob", "POWER_USER")
	createTestUser(t, q, "carol@corp.test", "Carol", "USER")
	createTestUser(t, q, "dave@corp.test", "Dave ALICE", "USER")

	tests := []struct {
		name   string
		search string
		role   string
		want   int64
	}{
		{"no filter", "", "", 4},
		{"name substring", "alice", "", 2},
		{"email substring case-insensitive", "CORP", "", 2},
		{"role exact", "", "USER", 2},
		{"search and role", "alice", "USER", 1},
		{"no match", "zzz", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := q.CountUsers(ctx, CountUsersParams{Search: tt.search, Role: tt.role})
			if err != nil {
				t.Fatalf("CountUsers: %v", err)
			}
			if count != tt.want {
				t.Errorf("CountUsers = %d, want %d", count, tt.want)
			}

			users, err := q.ListUsers(ctx, ListUsersParams{Search: tt.search, Role: tt.role, Limit: 100})
			if err != nil {
				t.Fatalf("ListUsers: %v", err)
			}
			if int64(len(users)) != tt.want {
				t.Errorf("len(ListUsers) = %d, want %d", len(users), tt.want)
			}
		})
	}
}

func TestResetTokenLifecycle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "r@example.com", "R", "USER")
	now := time.Now().UTC()

	err := q.SetUserResetToken(ctx, SetUserResetTokenParams{
		ID:               u.ID,
		ResetToken:       sql.NullString{String: "tok", Valid: true},
		ResetTokenExpiry: sql.NullTime{Time: now.Add(-time.Minute), Valid: true},
		UpdatedAt:        now,
	})
	if err != nil {
		t.Fatalf("SetUserResetToken: %v", err)
	}

	got, err := q.GetUserByResetToken(ctx, "tok")
	if err != nil {
		t.Fatalf("GetUserByResetToken: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetUserByResetToken ID = %d, want %d", got.ID, u.ID)
	}

	n, err := q.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		t.Fatalf("ClearExpiredResetTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("ClearExpiredResetTokens = %d, want 1", n)
	}

	if _, err := q.GetUserByResetToken(ctx, "tok"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetUserByResetToken after purge err = %v, want sql.ErrNoRows", err)
	}
}

func TestListBlogsFiltersAndOrder(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "a@example.com", "Author", "POWER_USER")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	createTestBlog(t, q, "Learning Go", "go, backend", true, author.ID, base)
	createTestBlog(t, q, "JavaScript Tips", "javascript, testing", true, author.ID, base.Add(time.Hour))
	createTestBlog(t, q, "Draft about Go", "go", false, author.ID, base.Add(2*time.Hour))

	published := sql.NullBool{Bool: true, Valid: true}
	draft := sql.NullBool{Bool: false, Valid: true}

	tests := []struct {
		name   string
		filter BlogFilter
		want   []string
	}{
		{"all newest first", BlogFilter{}, []string{"Draft about Go", "JavaScript Tips", "Learning Go"}},
		{"published only", BlogFilter{Published: published}, []string{"JavaScript Tips", "Learning Go"}},
		{"draft only", BlogFilter{Published: draft}, []string{"Draft about Go"}},
		{"tag substring", BlogFilter{Tag: "script"}, []string{"JavaScript Tips"}},
		{"tag case-insensitive", BlogFilter{Tag: "SCRIPT"}, []string{"JavaScript Tips"}},
		{"tag no match", BlogFilter{Tag: "xyz"}, nil},
		{"title search", BlogFilter{Search: "go"}, []string{"Draft about Go", "Learning Go"}},
		{"body search off", BlogFilter{Search: "body of javascript"}, nil},
		{"body search on", BlogFilter{Search: "body of javascript", SearchBody: true}, []string{"JavaScript Tips"}},
		{"published and tag", BlogFilter{Published: published, Tag: "go"}, []string{"Learning Go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := q.ListBlogs(ctx, ListBlogsParams{BlogFilter: tt.filter, Limit: 50})
			if err != nil {
				t.Fatalf("ListBlogs: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("len(ListBlogs) = %d, want %d", len(rows), len(tt.want))
			}
			for i, r := range rows {
				if r.Title != tt.want[i] {
					t.Errorf("rows[%d].Title = %q, want %q", i, r.Title, tt.want[i])
				}
				if !r.AuthorName.Valid || r.AuthorName.String != "Author" {
					t.Errorf("rows[%d].AuthorName = %+v", i, r.AuthorName)
				}
			}

			count, err := q.CountBlogs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountBlogs: %v", err)
			}
			if count != int64(len(tt.want)) {
				t.Errorf("CountBlogs = %d, want %d", count, len(tt.want))
			}
		})
	}
}

func TestGetPublishedBlogHidesDrafts(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now().UTC()
	draft := createTestBlog(t, q, "Draft", "", false, 1, now)

	if _, err := q.GetPublishedBlog(ctx, draft.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPublishedBlog(draft) err = %v, want sql.ErrNoRows", err)
	}

	if _, err := q.SetBlogPublished(ctx, SetBlogPublishedParams{ID: draft.ID, Published: true, UpdatedAt: now}); err != nil {
		t.Fatalf("SetBlogPublished: %v", err)
	}
	got, err := q.GetPublishedBlog(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetPublishedBlog: %v", err)
	}
	if got.AuthorName.Valid {
		t.Errorf("AuthorName for missing author = %+v, want NULL", got.AuthorName)
	}
}

func TestDeleteBlogRowsAffected(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	b := createTestBlog(t, q, "Gone", "", true, 1, time.Now().UTC())

	n, err := q.DeleteBlog(ctx, b.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteBlog = (%d, %v), want (1, nil)", n, err)
	}
	n, err = q.DeleteBlog(ctx, b.ID)
	if err != nil || n != 0 {
		t.Fatalf("second DeleteBlog = (%d, %v), want (0, nil)", n, err)
	}
}

func TestCountBlogStats(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "s@example.com", "S", "ADMIN")
	now := time.Now().UTC()
	createTestBlog(t, q, "One", "", true, u.ID, now)
	createTestBlog(t, q, "Two", "", false, u.ID, now)

	stats, err := q.CountBlogStats(ctx)
	if err != nil {
		t.Fatalf("CountBlogStats: %v", err)
	}
	if stats.TotalBlogs != 2 || stats.PublishedBlogs != 1 || stats.TotalUsers != 1 {
		t.Errorf("CountBlogStats = %+v", stats)
	}
}

func TestEvents(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	for _, p := range []CreateEventParams{
		{Level: "info", Category: "content", Message: "created", Metadata: "{}", CreatedAt: old},
		{Level: "warning", Category: "auth", Message: "denied", Metadata: "{}", CreatedAt: recent},
	} {
		if _, err := q.CreateEvent(ctx, p); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	count, err := q.CountEvents(ctx, CountEventsParams{Category: "auth"})
	if err != nil || count != 1 {
		t.Errorf("CountEvents(auth) = (%d, %v), want (1, nil)", count, err)
	}

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 || events[0].Message != "denied" {
		t.Errorf("ListEvents = %+v", events)
	}

	n, err := q.DeleteOldEvents(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Errorf("DeleteOldEvents = (%d, %v), want (1, nil)", n, err)
	}
}

func TestSeed(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	opts := SeedOptions{Email: "root@example.com", Password: "correct horse battery"}
	if err := Seed(ctx, db, opts); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := Seed(ctx, db, opts); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	u, err := New(db).GetUserByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.Role != "ADMIN" || u.Name != DefaultAdminName {
		t.Errorf("seeded user = %+v", u)
	}

	if err := Seed(ctx, db, SeedOptions{Email: "x@example.com"}); err == nil {
		t.Error("Seed with empty password: expected error")
	}
}
