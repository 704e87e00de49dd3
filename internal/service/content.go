// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/storage"
	"github.com/olegiv/sitecms/internal/store"
)

// Content limits.
const (
	// PublicRecentLimit caps the summary list returned without all=true.
	PublicRecentLimit = 10
	// ExcerptLength is the rune length of a derived excerpt.
	ExcerptLength = 200
	// MaxTitleLength bounds content titles in runes.
	MaxTitleLength = 255
)

// contentCachePrefix groups every cached public content response.
const contentCachePrefix = "content:"

// ContentStore is the persistence the content lifecycle needs.
// *store.Queries implements it.
type ContentStore interface {
	CreateBlog(ctx context.Context, arg store.CreateBlogParams) (store.Blog, error)
	GetBlog(ctx context.Context, id int64) (store.BlogWithAuthor, error)
	GetPublishedBlog(ctx context.Context, id int64) (store.BlogWithAuthor, error)
	UpdateBlog(ctx context.Context, arg store.UpdateBlogParams) (store.Blog, error)
	SetBlogPublished(ctx context.Context, arg store.SetBlogPublishedParams) (store.Blog, error)
	DeleteBlog(ctx context.Context, id int64) (int64, error)
	ListBlogs(ctx context.Context, arg store.ListBlogsParams) ([]store.BlogWithAuthor, error)
	CountBlogs(ctx context.Context, arg store.BlogFilter) (int64, error)
	ListRecentPublishedBlogs(ctx context.Context, limit int64) ([]store.Blog, error)
	CountBlogStats(ctx context.Context) (store.CountBlogStatsRow, error)
}

// ContentInput carries the editable fields of a content item.
type ContentInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Excerpt     string `json:"excerpt"`
	Tags        string `json:"tags"`
	BannerImage string `json:"banner_image"`
	Published   bool   `json:"published"`
}

// PublicListing is the result of ListPublic: Recent is set for the capped
// summary list and Page for the full paginated list.
type PublicListing struct {
	Recent []model.ContentSummary
	Page   *listing.Page[model.Content]
}

// Stats are the admin dashboard counters.
type Stats struct {
	TotalContent     int64 `json:"total_content"`
	PublishedContent int64 `json:"published_content"`
	TotalAccounts    int64 `json:"total_accounts"`
}

// ContentDeps are the collaborators of a ContentService. Cache and Events
// are optional.
type ContentDeps struct {
	Store  ContentStore
	Blobs  storage.Deleter
	Cache  cache.Cache
	Events EventRecorder
	Logger *slog.Logger

	// CacheTTL applies to cached public responses.
	CacheTTL time.Duration
}

// ContentService manages the content item lifecycle.
type ContentService struct {
	store  ContentStore
	blobs  storage.Deleter
	cache  cache.Cache
	events EventRecorder
	logger *slog.Logger

	recent *cache.Typed[[]model.ContentSummary]
	pages  *cache.Typed[listing.Page[model.Content]]
	items  *cache.Typed[model.Content]

	sanitizer *bluemonday.Policy
	stripper  *bluemonday.Policy
	now       func() time.Time
}

// NewContentService creates a content service.
func NewContentService(deps ContentDeps) *ContentService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &ContentService{
		store:     deps.Store,
		blobs:     deps.Blobs,
		cache:     deps.Cache,
		events:    deps.Events,
		logger:    logger,
		sanitizer: bluemonday.UGCPolicy(),
		stripper:  bluemonday.StrictPolicy(),
		now:       time.Now,
	}
	if deps.Cache != nil {
		s.recent = cache.NewTyped[[]model.ContentSummary](deps.Cache, contentCachePrefix+"recent:", deps.CacheTTL)
		s.pages = cache.NewTyped[listing.Page[model.Content]](deps.Cache, contentCachePrefix+"list:", deps.CacheTTL)
		s.items = cache.NewTyped[model.Content](deps.Cache, contentCachePrefix+"item:", deps.CacheTTL)
	}
	return s
}

// ListAdmin returns every item in any state, filtered by the query and
// matched against title and body.
func (s *ContentService) ListAdmin(ctx context.Context, actor *model.Actor, q listing.Query) (listing.Page[model.Content], error) {
	if err := authorize(actor, model.CanAccessAdmin); err != nil {
		return listing.Page[model.Content]{}, err
	}
	return s.list(ctx, q, store.BlogFilter{
		Search:     q.Search,
		SearchBody: true,
		Tag:        q.Tag,
		Published:  nullBool(q.PublishedFilter()),
	})
}

// ListPublic lists published items only. With all=false it returns the
// newest PublicRecentLimit summaries and ignores the query; with all=true it
// returns the filtered, paginated list.
func (s *ContentService) ListPublic(ctx context.Context, all bool, q listing.Query) (PublicListing, error) {
	if !all {
		recent, err := s.RecentPublic(ctx)
		return PublicListing{Recent: recent}, err
	}
	page, err := s.PagePublic(ctx, q)
	if err != nil {
		return PublicListing{}, err
	}
	return PublicListing{Page: &page}, nil
}

// RecentPublic returns summaries of the newest published items.
func (s *ContentService) RecentPublic(ctx context.Context) ([]model.ContentSummary, error) {
	load := func(ctx context.Context) ([]model.ContentSummary, error) {
		rows, err := s.store.ListRecentPublishedBlogs(ctx, PublicRecentLimit)
		if err != nil {
			return nil, storeErr("listing recent content", err)
		}
		out := make([]model.ContentSummary, len(rows))
		for i, r := range rows {
			out[i] = model.ContentSummary{
				ID:          r.ID,
				Title:       r.Title,
				Excerpt:     s.excerptOf(r.Excerpt, r.Content),
				BannerImage: r.BannerImage,
				CreatedAt:   r.CreatedAt,
			}
		}
		return out, nil
	}
	if s.recent == nil {
		return load(ctx)
	}
	return s.recent.GetOrLoad(ctx, "all", load)
}

// PagePublic returns one page of published items. The status filter of q
// is ignored and search matches titles only.
func (s *ContentService) PagePublic(ctx context.Context, q listing.Query) (listing.Page[model.Content], error) {
	q.Status = model.StatusPublished
	published := true
	load := func(ctx context.Context) (listing.Page[model.Content], error) {
		page, err := s.list(ctx, q, store.BlogFilter{
			Search:    q.Search,
			Tag:       q.Tag,
			Published: nullBool(&published),
		})
		if err != nil {
			return page, err
		}
		for i := range page.Items {
			s.publicView(&page.Items[i])
		}
		return page, nil
	}
	if s.pages == nil {
		return load(ctx)
	}
	return s.pages.GetOrLoad(ctx, q.Values().Encode(), load)
}

// GetPublic returns a published item. Drafts are reported as not found.
func (s *ContentService) GetPublic(ctx context.Context, id int64) (model.Content, error) {
	load := func(ctx context.Context) (model.Content, error) {
		row, err := s.store.GetPublishedBlog(ctx, id)
		if err != nil {
			return model.Content{}, storeErr("getting content", err)
		}
		c := row.Model()
		s.publicView(&c)
		return c, nil
	}
	if s.items == nil {
		return load(ctx)
	}
	return s.items.GetOrLoad(ctx, strconv.FormatInt(id, 10), load)
}

// Get returns an item in any state for editing.
func (s *ContentService) Get(ctx context.Context, actor *model.Actor, id int64) (model.Content, error) {
	if err := authorize(actor, model.CanAccessAdmin); err != nil {
		return model.Content{}, err
	}
	row, err := s.store.GetBlog(ctx, id)
	if err != nil {
		return model.Content{}, storeErr("getting content", err)
	}
	return row.Model(), nil
}

// Create validates in and stores a new item authored by actor.
func (s *ContentService) Create(ctx context.Context, actor *model.Actor, in ContentInput) (model.Content, error) {
	if err := authorize(actor, model.CanCreateContent); err != nil {
		s.denied(ctx, actor, "create content")
		return model.Content{}, err
	}
	in, err := s.clean(in)
	if err != nil {
		return model.Content{}, err
	}

	now := s.now().UTC()
	row, err := s.store.CreateBlog(ctx, store.CreateBlogParams{
		Title:       in.Title,
		Content:     in.Content,
		Excerpt:     in.Excerpt,
		Tags:        in.Tags,
		BannerImage: in.BannerImage,
		Published:   in.Published,
		AuthorID:    actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Content{}, storeErr("creating content", err)
	}

	s.invalidate(ctx)
	s.record(ctx, actor, "Content created", row.ID, row.Title)
	return row.Model(), nil
}

// Update replaces every editable field of an item, including its published
// flag. The author never changes.
func (s *ContentService) Update(ctx context.Context, actor *model.Actor, id int64, in ContentInput) (model.Content, error) {
	if err := authorize(actor, model.CanEditContent); err != nil {
		s.denied(ctx, actor, "update content")
		return model.Content{}, err
	}
	in, err := s.clean(in)
	if err != nil {
		return model.Content{}, err
	}

	row, err := s.store.UpdateBlog(ctx, store.UpdateBlogParams{
		ID:          id,
		Title:       in.Title,
		Content:     in.Content,
		Excerpt:     in.Excerpt,
		Tags:        in.Tags,
		BannerImage: in.BannerImage,
		Published:   in.Published,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return model.Content{}, storeErr("updating content", err)
	}

	s.invalidate(ctx)
	s.record(ctx, actor, "Content updated", row.ID, row.Title)
	return row.Model(), nil
}

// SetPublished changes only the published flag of an item.
func (s *ContentService) SetPublished(ctx context.Context, actor *model.Actor, id int64, published bool) (model.Content, error) {
	if err := authorize(actor, model.CanPublishContent); err != nil {
		s.denied(ctx, actor, "publish content")
		return model.Content{}, err
	}

	row, err := s.store.SetBlogPublished(ctx, store.SetBlogPublishedParams{
		ID:        id,
		Published: published,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return model.Content{}, storeErr("publishing content", err)
	}

	s.invalidate(ctx)
	msg := "Content unpublished"
	if published {
		msg = "Content published"
	}
	s.record(ctx, actor, msg, row.ID, row.Title)
	return row.Model(), nil
}

// Delete removes an item. The banner image is released first; a failed
// release is logged and the record is deleted anyway.
func (s *ContentService) Delete(ctx context.Context, actor *model.Actor, id int64) error {
	if err := authorize(actor, model.CanDeleteContent); err != nil {
		s.denied(ctx, actor, "delete content")
		return err
	}

	row, err := s.store.GetBlog(ctx, id)
	if err != nil {
		return storeErr("getting content", err)
	}

	if row.BannerImage != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, row.BannerImage); err != nil {
			s.logger.WarnContext(ctx, "failed to release banner image",
				"error", err,
				"content_id", id,
				"banner_image", row.BannerImage,
				"category", model.EventCategoryUpload,
			)
		}
	}

	n, err := s.store.DeleteBlog(ctx, id)
	if err != nil {
		return storeErr("deleting content", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.invalidate(ctx)
	s.record(ctx, actor, "Content deleted", id, row.Title)
	return nil
}

// Stats returns content and account counters.
func (s *ContentService) Stats(ctx context.Context, actor *model.Actor) (Stats, error) {
	if err := authorize(actor, model.CanViewStats); err != nil {
		return Stats{}, err
	}
	row, err := s.store.CountBlogStats(ctx)
	if err != nil {
		return Stats{}, storeErr("counting content", err)
	}
	return Stats{
		TotalContent:     row.TotalBlogs,
		PublishedContent: row.PublishedBlogs,
		TotalAccounts:    row.TotalUsers,
	}, nil
}

func (s *ContentService) list(ctx context.Context, q listing.Query, filter store.BlogFilter) (listing.Page[model.Content], error) {
	rows, total, err := listing.ListAndCount(
		func() ([]store.BlogWithAuthor, error) {
			return s.store.ListBlogs(ctx, store.ListBlogsParams{
				BlogFilter: filter,
				Limit:      int64(q.Limit),
				Offset:     int64(q.Offset()),
			})
		},
		func() (int64, error) {
			return s.store.CountBlogs(ctx, filter)
		},
	)
	if err != nil {
		return listing.Page[model.Content]{}, storeErr("listing content", err)
	}

	items := make([]model.Content, len(rows))
	for i, r := range rows {
		items[i] = r.Model()
	}
	return listing.NewPage(q, items, total), nil
}

// clean trims and sanitises in and validates the result.
func (s *ContentService) clean(in ContentInput) (ContentInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(s.sanitizer.Sanitize(in.Content))
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Tags = strings.TrimSpace(in.Tags)
	in.BannerImage = strings.TrimSpace(in.BannerImage)

	verr := NewValidationError()
	switch {
	case in.Title == "":
		verr.Add("title", "Title is required")
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		verr.Add("title", "Title is too long")
	}
	if strings.TrimSpace(s.stripper.Sanitize(in.Content)) == "" {
		verr.Add("content", "Content is required")
	}
	if in.BannerImage != "" && !validBannerURL(in.BannerImage) {
		verr.Add("banner_image", "Banner image must be an uploaded image URL")
	}
	return in, verr.OrNil()
}

func validBannerURL(u string) bool {
	return strings.HasPrefix(u, storage.LocalURLPrefix) ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "http://")
}

// excerptOf returns excerpt, or a plain-text prefix of body when it is empty.
func (s *ContentService) excerptOf(excerpt, body string) string {
	if excerpt != "" {
		return excerpt
	}
	text := html.UnescapeString(s.stripper.Sanitize(body))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:ExcerptLength])) + "…"
}

// publicView hides author contact details and fills in a missing excerpt.
func (s *ContentService) publicView(c *model.Content) {
	if c.Author != nil {
		c.Author = &model.Author{Name: c.Author.Name}
	}
	c.Excerpt = s.excerptOf(c.Excerpt, c.Content)
}

func (s *ContentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, contentCachePrefix); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate content cache", "error", err, "category", model.EventCategorySystem)
	}
}

func (s *ContentService) record(ctx context.Context, actor *model.Actor, message string, id int64, title string) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, model.EventLevelInfo, model.EventCategoryContent, message, actor, map[string]any{
		"content_id": id,
		"title":      title,
	})
}

func (s *ContentService) denied(ctx context.Context, actor *model.Actor, action string) {
	if actor == nil {
		return
	}
	s.logger.WarnContext(ctx, "access denied",
		"action", action,
		"role", actor.Role.String(),
		"category", model.EventCategoryContent,
	)
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
