// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type Blog struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	Tags          string    `json:"tags"`
	BannerImage   string    `json:"banner_image"`
	Published     bool      `json:"published"`
	AuthorID      int64     `json:"author_id"`
	TitleFolded   string    `json:"title_folded"`
	ContentFolded string    `json:"content_folded"`
	TagsFolded    string    `json:"tags_folded"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"user_id"`
	IpAddress string        `json:"ip_address"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

type Session struct {
	Token  string  `json:"token"`
	Data   []byte  `json:"data"`
	Expiry float64 `json:"expiry"`
}

type User struct {
	ID               int64          `json:"id"`
	Email            string         `json:"email"`
	Name             string         `json:"name"`
	PasswordHash     string         `json:"password_hash"`
	Role             string         `json:"role"`
	ResetToken       sql.NullString `json:"reset_token"`
	ResetTokenExpiry sql.NullTime   `json:"reset_token_expiry"`
	NameFolded       string         `json:"name_folded"`
	EmailFolded      string         `json:"email_folded"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	LastLoginAt      sql.NullTime   `json:"last_login_at"`
}
