// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// validate is a shared, concurrency-safe validator instance.
var validate = validator.New()

// AuthorInput carries the fields for creating an author.
type AuthorInput struct {
	Name      string
	Email     string
	Bio       string
	AvatarURL string
}

// UpdateAuthorInput carries a partial author update.
type UpdateAuthorInput struct {
	Name      *string
	Email     *string
	Bio       *string
	AvatarURL *string
}

// AuthorService provides author CRUD. Emails are unique; an author stays
// undeletable while articles reference them.
type AuthorService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewAuthorService creates an AuthorService.
func NewAuthorService(db *sql.DB, logger *slog.Logger) *AuthorService {
	return &AuthorService{queries: store.New(db), logger: logger}
}

func (s *AuthorService) Create(ctx context.Context, in AuthorInput) (model.Author, error) {
	const op = "service.AuthorService.Create"

	if fields := validateAuthorFields(in.Name, in.Email, in.AvatarURL); len(fields) > 0 {
		return model.Author{}, errx.E(op, errx.Invalid, fields)
	}

	now := time.Now()
	author, err := s.queries.CreateAuthor(ctx, store.CreateAuthorParams{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Bio:       htmlSanitizer.Sanitize(in.Bio),
		AvatarURL: in.AvatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Author{}, store.MapError(op, err)
	}
	return author, nil
}

func (s *AuthorService) Get(ctx context.Context, id int64) (model.Author, error) {
	author, err := s.queries.GetAuthorByID(ctx, id)
	if err != nil {
		return model.Author{}, store.MapError("service.AuthorService.Get", err)
	}
	return author, nil
}

func (s *AuthorService) List(ctx context.Context) ([]model.Author, error) {
	items, err := s.queries.ListAuthors(ctx)
	if err != nil {
		return nil, store.MapError("service.AuthorService.List", err)
	}
	return items, nil
}

func (s *AuthorService) Update(ctx context.Context, id int64, in UpdateAuthorInput) (model.Author, error) {
	const op = "service.AuthorService.Update"

	existing, err := s.queries.GetAuthorByID(ctx, id)
	if err != nil {
		return model.Author{}, store.MapError(op, err)
	}

	params := store.UpdateAuthorParams{
		ID:        existing.ID,
		Name:      existing.Name,
		Email:     existing.Email,
		Bio:       existing.Bio,
		AvatarURL: existing.AvatarURL,
		UpdatedAt: time.Now(),
	}

	if in.Name != nil {
		params.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		params.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Bio != nil {
		params.Bio = htmlSanitizer.Sanitize(*in.Bio)
	}
	if in.AvatarURL != nil {
		params.AvatarURL = *in.AvatarURL
	}

	if fields := validateAuthorFields(params.Name, params.Email, params.AvatarURL); len(fields) > 0 {
		return model.Author{}, errx.E(op, errx.Invalid, fields)
	}

	if err := s.queries.UpdateAuthor(ctx, params); err != nil {
		return model.Author{}, store.MapError(op, err)
	}

	updated, err := s.queries.GetAuthorByID(ctx, id)
	if err != nil {
		return model.Author{}, store.MapError(op, err)
	}
	return updated, nil
}

// Delete refuses to remove an author who still has articles. The FK RESTRICT
// on news.author_id backs the same rule at the schema level.
func (s *AuthorService) Delete(ctx context.Context, id int64) error {
	const op = "service.AuthorService.Delete"

	if _, err := s.queries.GetAuthorByID(ctx, id); err != nil {
		return store.MapError(op, err)
	}

	inUse, err := s.queries.CountNewsByAuthor(ctx, id)
	if err != nil {
		return store.MapError(op, err)
	}
	if inUse > 0 {
		return errx.E(op, errx.Conflict, fmt.Errorf("author %d is referenced by %d articles", id, inUse))
	}

	if err := s.queries.DeleteAuthor(ctx, id); err != nil {
		return store.MapError(op, err)
	}
	return nil
}

func validateAuthorFields(name, email, avatarURL string) FieldErrors {
	fields := FieldErrors{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "name is required"
	}
	if err := validate.Var(email, "required,email"); err != nil {
		fields["email"] = "email must be a valid address"
	}
	if avatarURL != "" {
		if err := validate.Var(avatarURL, "url"); err != nil {
			fields["avatar_url"] = "avatar_url must be a valid URL"
		}
	}
	return fields
}
