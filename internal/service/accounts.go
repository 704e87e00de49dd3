// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/sitecms/internal/auth"
	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/listing"
	"github.com/olegiv/sitecms/internal/mailer"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/store"
	"github.com/olegiv/sitecms/internal/util"
)

// Account defaults.
const (
	DefaultMinPasswordLength = 8
	DefaultResetTokenTTL     = time.Hour
	MaxNameLength            = 100
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or
// a wrong password. The two cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AccountStore is the persistence account management needs.
// *store.Queries implements it.
type AccountStore interface {
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByResetToken(ctx context.Context, token string) (store.User, error)
	UpdateUser(ctx context.Context, arg store.UpdateUserParams) (store.User, error)
	UpdateUserPassword(ctx context.Context, arg store.UpdateUserPasswordParams) error
	UpdateUserLastLogin(ctx context.Context, arg store.UpdateUserLastLoginParams) error
	SetUserResetToken(ctx context.Context, arg store.SetUserResetTokenParams) error
	DeleteUser(ctx context.Context, id int64) (int64, error)
	ListUsers(ctx context.Context, arg store.ListUsersParams) ([]store.User, error)
	CountUsers(ctx context.Context, arg store.CountUsersParams) (int64, error)
}

// AccountInput carries account fields from a request. An empty Password on
// update keeps the current one. Role is only read from administrators.
type AccountInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AccountDeps are the collaborators of an AccountService.
type AccountDeps struct {
	Store             AccountStore
	Mailer            mailer.Mailer
	Events            EventRecorder
	Logger            *slog.Logger
	ResetTokenTTL     time.Duration
	MinPasswordLength int

	// BaseURL prefixes the link in password reset mail.
	BaseURL string

	// DB makes multi-step writes transactional when Store is a
	// *store.Queries.
	DB *sql.DB

	// Cache holds public content responses, which embed author names.
	Cache cache.Cache
}

// AccountService manages accounts, sign-in and password resets.
type AccountService struct {
	store     AccountStore
	db        *sql.DB
	cache     cache.Cache
	mailer    mailer.Mailer
	events    EventRecorder
	logger    *slog.Logger
	resetTTL  time.Duration
	minPwdLen int
	baseURL   string
	now       func() time.Time
}

// NewAccountService creates an account service.
func NewAccountService(deps AccountDeps) *AccountService {
	s := &AccountService{
		store:     deps.Store,
		db:        deps.DB,
		cache:     deps.Cache,
		mailer:    deps.Mailer,
		events:    deps.Events,
		logger:    deps.Logger,
		resetTTL:  deps.ResetTokenTTL,
		minPwdLen: deps.MinPasswordLength,
		baseURL:   strings.TrimRight(deps.BaseURL, "/"),
		now:       time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.mailer == nil {
		s.mailer = mailer.NewLogMailer(s.logger)
	}
	if s.resetTTL <= 0 {
		s.resetTTL = DefaultResetTokenTTL
	}
	if s.minPwdLen <= 0 {
		s.minPwdLen = DefaultMinPasswordLength
	}
	return s
}

// List returns a page of accounts filtered by name/email search and role.
func (s *AccountService) List(ctx context.Context, actor *model.Actor, q listing.Query) (listing.Page[model.User], error) {
	if err := authorize(actor, model.CanAccessAdmin); err != nil {
		return listing.Page[model.User]{}, err
	}

	role := ""
	if q.Role.Valid() {
		role = q.Role.String()
	}
	rows, total, err := listing.ListAndCount(
		func() ([]store.User, error) {
			return s.store.ListUsers(ctx, store.ListUsersParams{
				Search: q.Search,
				Role:   role,
				Limit:  int64(q.Limit),
				Offset: int64(q.Offset()),
			})
		},
		func() (int64, error) {
			return s.store.CountUsers(ctx, store.CountUsersParams{Search: q.Search, Role: role})
		},
	)
	if err != nil {
		return listing.Page[model.User]{}, storeErr("listing accounts", err)
	}

	items := make([]model.User, len(rows))
	for i, r := range rows {
		items[i] = r.Model()
	}
	return listing.NewPage(q, items, total), nil
}

// Get returns an account. Actors may read themselves; reading others
// requires admin access.
func (s *AccountService) Get(ctx context.Context, actor *model.Actor, id int64) (model.User, error) {
	if actor == nil {
		return model.User{}, ErrUnauthorized
	}
	if !actor.Is(id) && !model.CanAccessAdmin(actor.Role) {
		return model.User{}, ErrForbidden
	}
	row, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr("getting account", err)
	}
	return row.Model(), nil
}

// Create adds an account with any role. Administrators only.
func (s *AccountService) Create(ctx context.Context, actor *model.Actor, in AccountInput) (model.User, error) {
	if err := authorize(actor, model.CanManageAccounts); err != nil {
		s.denied(ctx, actor, "create account")
		return model.User{}, err
	}

	in = normalizeAccount(in)
	verr := NewValidationError()
	s.validateIdentity(verr, in)
	s.validatePassword(verr, in.Password, true)
	role := model.ParseRole(in.Role)
	if !role.Valid() {
		verr.Add("role", "Role must be one of USER, POWER_USER, ADMIN")
	}
	if err := verr.OrNil(); err != nil {
		return model.User{}, err
	}

	u, err := s.insert(ctx, in, role)
	if err != nil {
		return model.User{}, err
	}
	s.record(ctx, actor, "Account created", u)
	return u, nil
}

// Register creates a USER account for an anonymous visitor.
func (s *AccountService) Register(ctx context.Context, in AccountInput) (model.User, error) {
	in = normalizeAccount(in)
	verr := NewValidationError()
	s.validateIdentity(verr, in)
	s.validatePassword(verr, in.Password, true)
	if err := verr.OrNil(); err != nil {
		return model.User{}, err
	}

	u, err := s.insert(ctx, in, model.RoleUser)
	if err != nil {
		return model.User{}, err
	}
	s.record(ctx, u.Actor(), "Account registered", u)
	return u, nil
}

// Update changes name and email, and the password when one is given.
// Actors may update themselves; administrators may update anyone and are
// the only ones whose Role input is honoured.
func (s *AccountService) Update(ctx context.Context, actor *model.Actor, id int64, in AccountInput) (model.User, error) {
	if actor == nil {
		return model.User{}, ErrUnauthorized
	}
	isAdmin := model.CanManageAccounts(actor.Role)
	if !actor.Is(id) && !isAdmin {
		s.denied(ctx, actor, "update account")
		return model.User{}, ErrForbidden
	}

	current, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr("getting account", err)
	}

	in = normalizeAccount(in)
	verr := NewValidationError()
	s.validateIdentity(verr, in)
	s.validatePassword(verr, in.Password, false)

	role := model.ParseRole(current.Role)
	if isAdmin && in.Role != "" {
		newRole := model.ParseRole(in.Role)
		switch {
		case !newRole.Valid():
			verr.Add("role", "Role must be one of USER, POWER_USER, ADMIN")
		case actor.Is(id) && newRole != role:
			verr.Add("role", "You cannot change your own role")
		default:
			role = newRole
		}
	}
	if in.Email != current.Email {
		s.checkEmailFree(ctx, verr, in.Email)
	}
	if err := verr.OrNil(); err != nil {
		return model.User{}, err
	}

	now := s.now().UTC()
	var row store.User
	err = s.inTx(ctx, func(st AccountStore) error {
		var err error
		row, err = st.UpdateUser(ctx, store.UpdateUserParams{
			ID:        id,
			Email:     in.Email,
			Name:      in.Name,
			Role:      role.String(),
			UpdatedAt: now,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return emailTaken()
			}
			return storeErr("updating account", err)
		}
		if in.Password != "" {
			return s.setPassword(ctx, st, id, in.Password)
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	s.invalidateContent(ctx)
	u := row.Model()
	s.record(ctx, actor, "Account updated", u)
	return u, nil
}

// Delete removes an account. Administrators only, and never their own.
// Content authored by the account is kept.
func (s *AccountService) Delete(ctx context.Context, actor *model.Actor, id int64) error {
	if err := authorize(actor, model.CanManageAccounts); err != nil {
		s.denied(ctx, actor, "delete account")
		return err
	}
	if actor.Is(id) {
		verr := NewValidationError()
		verr.Add("id", "You cannot delete your own account")
		return verr
	}

	row, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return storeErr("getting account", err)
	}
	n, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return storeErr("deleting account", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.invalidateContent(ctx)
	s.record(ctx, actor, "Account deleted", row.Model())
	return nil
}

// Authenticate verifies credentials and records the login time. Hashes
// made with outdated parameters are upgraded on success.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, storeErr("getting account", err)
	}

	ok, err := auth.CheckPassword(password, row.PasswordHash)
	if err != nil || !ok {
		if s.events != nil {
			s.events.Record(ctx, model.EventLevelWarning, model.EventCategoryAuth, "Failed login attempt", nil,
				map[string]any{"email": email})
		}
		return model.User{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(row.PasswordHash) {
		if err := s.setPassword(ctx, s.store, row.ID, password); err != nil {
			s.logger.WarnContext(ctx, "failed to upgrade password hash", "error", err, "user_id", row.ID)
		}
	}

	now := s.now()
	if err := s.store.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		ID:          row.ID,
		LastLoginAt: util.NullTimeFromValue(now),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to record login time", "error", err, "user_id", row.ID)
	}
	row.LastLoginAt = util.NullTimeFromValue(now)

	u := row.Model()
	s.record(ctx, u.Actor(), "User logged in", u)
	return u, nil
}

// RequestPasswordReset issues a reset token for email and mails a link.
// Unknown addresses return ErrNotFound. Mail failures are logged only.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		verr := NewValidationError()
		verr.Add("email", "Invalid email format")
		return verr
	}

	row, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return storeErr("getting account", err)
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}
	now := s.now().UTC()
	if err := s.store.SetUserResetToken(ctx, store.SetUserResetTokenParams{
		ID:               row.ID,
		ResetToken:       util.NullStringFromValue(token),
		ResetTokenExpiry: util.NullTimeFromValue(now.Add(s.resetTTL)),
		UpdatedAt:        now,
	}); err != nil {
		return storeErr("saving reset token", err)
	}

	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	msg := mailer.Message{
		To:      row.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n",
			row.Name, s.resetTTL, link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "failed to send password reset email", "error", err, "user_id", row.ID)
	}

	s.record(ctx, nil, "Password reset requested", row.Model())
	return nil
}

// ResetPassword sets a new password for the account holding token. The
// token must exist and be unexpired, and it is consumed on success.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	verr := NewValidationError()
	s.validatePassword(verr, password, true)
	if err := verr.OrNil(); err != nil {
		return err
	}

	invalid := func() error {
		v := NewValidationError()
		v.Add("token", "Reset link is invalid or has expired")
		return v
	}
	if token == "" {
		return invalid()
	}

	row, err := s.store.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invalid()
		}
		return storeErr("getting account", err)
	}
	if !row.ResetTokenExpiry.Valid || !s.now().Before(row.ResetTokenExpiry.Time) {
		return invalid()
	}

	err = s.inTx(ctx, func(st AccountStore) error {
		if err := s.setPassword(ctx, st, row.ID, password); err != nil {
			return err
		}
		if err := st.SetUserResetToken(ctx, store.SetUserResetTokenParams{
			ID:        row.ID,
			UpdatedAt: s.now().UTC(),
		}); err != nil {
			return storeErr("clearing reset token", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u := row.Model()
	s.record(ctx, u.Actor(), "Password reset", u)
	return nil
}

func (s *AccountService) insert(ctx context.Context, in AccountInput, role model.Role) (model.User, error) {
	verr := NewValidationError()
	s.checkEmailFree(ctx, verr, in.Email)
	if err := verr.OrNil(); err != nil {
		return model.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	row, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         role.String(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, emailTaken()
		}
		return model.User{}, storeErr("creating account", err)
	}
	return row.Model(), nil
}

func (s *AccountService) setPassword(ctx context.Context, st AccountStore, id int64, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := st.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		ID:           id,
		PasswordHash: hash,
		UpdatedAt:    s.now().UTC(),
	}); err != nil {
		return storeErr("updating password", err)
	}
	return nil
}

// inTx runs fn in a transaction when the service has a database handle and
// a *store.Queries store. Otherwise fn runs against the plain store.
func (s *AccountService) inTx(ctx context.Context, fn func(AccountStore) error) error {
	q, ok := s.store.(*store.Queries)
	if s.db == nil || !ok {
		return fn(s.store)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// invalidateContent drops cached public content, which embeds author names.
func (s *AccountService) invalidateContent(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, contentCachePrefix); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate content cache", "error", err, "category", model.EventCategorySystem)
	}
}

func (s *AccountService) validateIdentity(verr *ValidationError, in AccountInput) {
	if in.Email == "" {
		verr.Add("email", "Email is required")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		verr.Add("email", "Invalid email format")
	}

	switch {
	case in.Name == "":
		verr.Add("name", "Name is required")
	case utf8.RuneCountInString(in.Name) > MaxNameLength:
		verr.Add("name", "Name is too long")
	}
}

func (s *AccountService) validatePassword(verr *ValidationError, password string, required bool) {
	switch {
	case password == "" && required:
		verr.Add("password", "Password is required")
	case password != "" && utf8.RuneCountInString(password) < s.minPwdLen:
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", s.minPwdLen))
	}
}

func (s *AccountService) checkEmailFree(ctx context.Context, verr *ValidationError, email string) {
	if _, bad := verr.Fields["email"]; bad {
		return
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		verr.Add("email", "Email is already registered")
	}
}

func (s *AccountService) record(ctx context.Context, actor *model.Actor, message string, u model.User) {
	if s.events == nil {
		return
	}
	s.events.Record(ctx, model.EventLevelInfo, model.EventCategoryUser, message, actor, map[string]any{
		"account_id": u.ID,
		"email":      u.Email,
		"role":       u.Role.String(),
	})
}

func (s *AccountService) denied(ctx context.Context, actor *model.Actor, action string) {
	if actor == nil {
		return
	}
	s.logger.WarnContext(ctx, "access denied",
		"action", action,
		"role", actor.Role.String(),
		"category", model.EventCategoryUser,
	)
}

func normalizeAccount(in AccountInput) AccountInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	return in
}

func emailTaken() error {
	verr := NewValidationError()
	verr.Add("email", "Email is already registered")
	return verr
}

// isUniqueViolation detects SQLite UNIQUE constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
