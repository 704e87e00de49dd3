// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/sitecms/internal/listing"
)

const blogColumns = `id, title, content, excerpt, tags, banner_image, published,
    author_id, title_folded, content_folded, tags_folded, created_at, updated_at`

const blogColumnsJoined = `b.id, b.title, b.content, b.excerpt, b.tags, b.banner_image, b.published,
    b.author_id, b.title_folded, b.content_folded, b.tags_folded, b.created_at, b.updated_at`

// BlogWithAuthor is a content row joined with its author. Author fields are
// NULL when the author account no longer exists.
type BlogWithAuthor struct {
	Blog
	AuthorName  sql.NullString `json:"author_name"`
	AuthorEmail sql.NullString `json:"author_email"`
}

func scanBlog(row interface{ Scan(...any) error }) (Blog, error) {
	var i Blog
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.Excerpt,
		&i.Tags,
		&i.BannerImage,
		&i.Published,
		&i.AuthorID,
		&i.TitleFolded,
		&i.ContentFolded,
		&i.TagsFolded,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanBlogWithAuthor(row interface{ Scan(...any) error }) (BlogWithAuthor, error) {
	var i BlogWithAuthor
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Content,
		&i.Excerpt,
		&i.Tags,
		&i.BannerImage,
		&i.Published,
		&i.AuthorID,
		&i.TitleFolded,
		&i.ContentFolded,
		&i.TagsFolded,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.AuthorName,
		&i.AuthorEmail,
	)
	return i, err
}

const createBlog = `-- name: CreateBlog :one
INSERT INTO blogs (title, content, excerpt, tags, banner_image, published, author_id,
    title_folded, content_folded, tags_folded, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + blogColumns

type CreateBlogParams struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	Tags        string    `json:"tags"`
	BannerImage string    `json:"banner_image"`
	Published   bool      `json:"published"`
	AuthorID    int64     `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *Queries) CreateBlog(ctx context.Context, arg CreateBlogParams) (Blog, error) {
	row := q.db.QueryRowContext(ctx, createBlog,
		arg.Title,
		arg.Content,
		arg.Excerpt,
		arg.Tags,
		arg.BannerImage,
		arg.Published,
		arg.AuthorID,
		listing.Fold(arg.Title),
		listing.Fold(arg.Content),
		listing.Fold(arg.Tags),
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanBlog(row)
}

const getBlog = `-- name: GetBlog :one
SELECT ` + blogColumnsJoined + `, u.name, u.email
FROM blogs b LEFT JOIN users u ON u.id = b.author_id
WHERE b.id = ?`

func (q *Queries) GetBlog(ctx context.Context, id int64) (BlogWithAuthor, error) {
	return scanBlogWithAuthor(q.db.QueryRowContext(ctx, getBlog, id))
}

const getPublishedBlog = `-- name: GetPublishedBlog :one
SELECT ` + blogColumnsJoined + `, u.name, u.email
FROM blogs b LEFT JOIN users u ON u.id = b.author_id
WHERE b.id = ? AND b.published = 1`

func (q *Queries) GetPublishedBlog(ctx context.Context, id int64) (BlogWithAuthor, error) {
	return scanBlogWithAuthor(q.db.QueryRowContext(ctx, getPublishedBlog, id))
}

const updateBlog = `-- name: UpdateBlog :one
UPDATE blogs
SET title = ?, content = ?, excerpt = ?, tags = ?, banner_image = ?, published = ?,
    title_folded = ?, content_folded = ?, tags_folded = ?, updated_at = ?
WHERE id = ?
RETURNING ` + blogColumns

type UpdateBlogParams struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	Tags        string    `json:"tags"`
	BannerImage string    `json:"banner_image"`
	Published   bool      `json:"published"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *Queries) UpdateBlog(ctx context.Context, arg UpdateBlogParams) (Blog, error) {
	row := q.db.QueryRowContext(ctx, updateBlog,
		arg.Title,
		arg.Content,
		arg.Excerpt,
		arg.Tags,
		arg.BannerImage,
		arg.Published,
		listing.Fold(arg.Title),
		listing.Fold(arg.Content),
		listing.Fold(arg.Tags),
		arg.UpdatedAt,
		arg.ID,
	)
	return scanBlog(row)
}

const setBlogPublished = `-- name: SetBlogPublished :one
UPDATE blogs SET published = ?, updated_at = ?
WHERE id = ?
RETURNING ` + blogColumns

type SetBlogPublishedParams struct {
	ID        int64     `json:"id"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) SetBlogPublished(ctx context.Context, arg SetBlogPublishedParams) (Blog, error) {
	row := q.db.QueryRowContext(ctx, setBlogPublished, arg.Published, arg.UpdatedAt, arg.ID)
	return scanBlog(row)
}

const deleteBlog = `-- name: DeleteBlog :execrows
DELETE FROM blogs WHERE id = ?`

func (q *Queries) DeleteBlog(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBlog, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Empty Search or Tag disables that filter; a NULL Published matches both
// states. Body matching only applies when SearchBody is set.
const blogFilter = `
WHERE (? = '' OR instr(b.title_folded, ?) > 0 OR (? AND instr(b.content_folded, ?) > 0))
  AND (? = '' OR instr(b.tags_folded, ?) > 0)
  AND (? IS NULL OR b.published = ?)`

type BlogFilter struct {
	Search     string       `json:"search"`
	SearchBody bool         `json:"search_body"`
	Tag        string       `json:"tag"`
	Published  sql.NullBool `json:"published"`
}

func (f BlogFilter) args() []any {
	search := listing.Fold(f.Search)
	tag := listing.Fold(f.Tag)
	return []any{
		search, search, f.SearchBody, search,
		tag, tag,
		f.Published, f.Published,
	}
}

const listBlogs = `-- name: ListBlogs :many
SELECT ` + blogColumnsJoined + `, u.name, u.email
FROM blogs b LEFT JOIN users u ON u.id = b.author_id` + blogFilter + `
ORDER BY b.created_at DESC, b.id DESC
LIMIT ? OFFSET ?`

type ListBlogsParams struct {
	BlogFilter
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func (q *Queries) ListBlogs(ctx context.Context, arg ListBlogsParams) ([]BlogWithAuthor, error) {
	args := append(arg.args(), arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, listBlogs, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []BlogWithAuthor
	for rows.Next() {
		i, err := scanBlogWithAuthor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countBlogs = `-- name: CountBlogs :one
SELECT COUNT(*) FROM blogs b` + blogFilter

func (q *Queries) CountBlogs(ctx context.Context, arg BlogFilter) (int64, error) {
	row := q.db.QueryRowContext(ctx, countBlogs, arg.args()...)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listRecentPublishedBlogs = `-- name: ListRecentPublishedBlogs :many
SELECT ` + blogColumns + `
FROM blogs
WHERE published = 1
ORDER BY created_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListRecentPublishedBlogs(ctx context.Context, limit int64) ([]Blog, error) {
	rows, err := q.db.QueryContext(ctx, listRecentPublishedBlogs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Blog
	for rows.Next() {
		i, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countBlogStats = `-- name: CountBlogStats :one
SELECT
    (SELECT COUNT(*) FROM blogs) AS total_blogs,
    (SELECT COUNT(*) FROM blogs WHERE published = 1) AS published_blogs,
    (SELECT COUNT(*) FROM users) AS total_users`

type CountBlogStatsRow struct {
	TotalBlogs     int64 `json:"total_blogs"`
	PublishedBlogs int64 `json:"published_blogs"`
	TotalUsers     int64 `json:"total_users"`
}

func (q *Queries) CountBlogStats(ctx context.Context) (CountBlogStatsRow, error) {
	row := q.db.QueryRowContext(ctx, countBlogStats)
	var i CountBlogStatsRow
	err := row.Scan(&i.TotalBlogs, &i.PublishedBlogs, &i.TotalUsers)
	return i, err
}
