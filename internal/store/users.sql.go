// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/sitecms/internal/listing"
)

const userColumns = `id, email, name, password_hash, role, reset_token, reset_token_expiry,
    name_folded, email_folded, created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.PasswordHash,
		&i.Role,
		&i.ResetToken,
		&i.ResetTokenExpiry,
		&i.NameFolded,
		&i.EmailFolded,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.LastLoginAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, name, password_hash, role, name_folded, email_folded, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email,
		arg.Name,
		arg.PasswordHash,
		arg.Role,
		listing.Fold(arg.Name),
		listing.Fold(arg.Email),
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByResetToken = `-- name: GetUserByResetToken :one
SELECT ` + userColumns + ` FROM users WHERE reset_token = ?`

func (q *Queries) GetUserByResetToken(ctx context.Context, token string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByResetToken, token))
}

const updateUser = `-- name: UpdateUser :one
UPDATE users
SET email = ?, name = ?, role = ?, name_folded = ?, email_folded = ?, updated_at = ?
WHERE id = ?
RETURNING ` + userColumns

type UpdateUserParams struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUser,
		arg.Email,
		arg.Name,
		arg.Role,
		listing.Fold(arg.Name),
		listing.Fold(arg.Email),
		arg.UpdatedAt,
		arg.ID,
	)
	return scanUser(row)
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

type UpdateUserPasswordParams struct {
	ID           int64     `json:"id"`
	PasswordHash string    `json:"password_hash"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

const updateUserLastLogin = `-- name: UpdateUserLastLogin :exec
UPDATE users SET last_login_at = ? WHERE id = ?`

type UpdateUserLastLoginParams struct {
	ID          int64        `json:"id"`
	LastLoginAt sql.NullTime `json:"last_login_at"`
}

func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateUserLastLogin, arg.LastLoginAt, arg.ID)
	return err
}

const setUserResetToken = `-- name: SetUserResetToken :exec
UPDATE users SET reset_token = ?, reset_token_expiry = ?, updated_at = ? WHERE id = ?`

type SetUserResetTokenParams struct {
	ID               int64          `json:"id"`
	ResetToken       sql.NullString `json:"reset_token"`
	ResetTokenExpiry sql.NullTime   `json:"reset_token_expiry"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (q *Queries) SetUserResetToken(ctx context.Context, arg SetUserResetTokenParams) error {
	_, err := q.db.ExecContext(ctx, setUserResetToken,
		arg.ResetToken,
		arg.ResetTokenExpiry,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const clearExpiredResetTokens = `-- name: ClearExpiredResetTokens :execrows
UPDATE users SET reset_token = NULL, reset_token_expiry = NULL
WHERE reset_token IS NOT NULL AND reset_token_expiry < ?`

func (q *Queries) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearExpiredResetTokens, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Empty Search or Role disables that filter.
const userFilter = `
WHERE (? = '' OR instr(name_folded, ?) > 0 OR instr(email_folded, ?) > 0)
  AND (? = '' OR role = ?)`

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users` + userFilter + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

type ListUsersParams struct {
	Search string `json:"search"`
	Role   string `json:"role"`
	Limit  int64  `json:"limit"`
	Offset int64  `json:"offset"`
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	search := listing.Fold(arg.Search)
	rows, err := q.db.QueryContext(ctx, listUsers,
		search, search, search,
		arg.Role, arg.Role,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
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

const countUsers = `-- name: CountUsers :one
SELECT COUNT(*) FROM users` + userFilter

type CountUsersParams struct {
	Search string `json:"search"`
	Role   string `json:"role"`
}

func (q *Queries) CountUsers(ctx context.Context, arg CountUsersParams) (int64, error) {
	search := listing.Fold(arg.Search)
	row := q.db.QueryRowContext(ctx, countUsers, search, search, search, arg.Role, arg.Role)
	var count int64
	err := row.Scan(&count)
	return count, err
}
