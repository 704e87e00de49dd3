// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"github.com/olegiv/sitecms/internal/model"
)

// Model converts the row into a domain account. Unknown stored roles map to
// model.RoleNone.
func (u User) Model() model.User {
	return model.User{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		PasswordHash:     u.PasswordHash,
		Role:             model.ParseRole(u.Role),
		ResetToken:       u.ResetToken.String,
		ResetTokenExpiry: u.ResetTokenExpiry,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
		LastLoginAt:      u.LastLoginAt,
	}
}

// Model converts the row into a domain content item without author details.
func (b Blog) Model() model.Content {
	return model.Content{
		ID:          b.ID,
		Title:       b.Title,
		Content:     b.Content,
		Excerpt:     b.Excerpt,
		Tags:        b.Tags,
		BannerImage: b.BannerImage,
		Published:   b.Published,
		AuthorID:    b.AuthorID,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// Model converts the joined row into a domain content item. Author is nil
// when the author account is gone.
func (b BlogWithAuthor) Model() model.Content {
	c := b.Blog.Model()
	if b.AuthorName.Valid || b.AuthorEmail.Valid {
		c.Author = &model.Author{Name: b.AuthorName.String, Email: b.AuthorEmail.String}
	}
	return c
}

// Model converts the row into a domain event.
func (e Event) Model() model.Event {
	return model.Event{
		ID:        e.ID,
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		UserID:    e.UserID,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}
