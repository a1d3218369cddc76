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

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/slug"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// CategoryInput carries the fields for creating a category. Slug is optional;
// when empty it derives from the name. A nil ParentID creates a root category.
type CategoryInput struct {
	Name     string
	Slug     string
	ParentID *int64
	Position int64
}

// UpdateCategoryInput carries a partial category update. ParentID is
// tri-state: nil leaves the parent untouched, an invalid NullInt64 moves the
// category to the root, a valid one reparents it.
type UpdateCategoryInput struct {
	Name     *string
	Slug     *string
	ParentID *sql.NullInt64
	Position *int64
}

// CategoryNode is a category with its resolved children, for tree responses.
type CategoryNode struct {
	Category model.Category
	Children []CategoryNode
}

// CategoryService provides category CRUD with hierarchy rules: no cycles, no
// self-parenting, and no deletion while children or articles reference the
// category.
type CategoryService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(db *sql.DB, logger *slog.Logger) *CategoryService {
	return &CategoryService{queries: store.New(db), logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (model.Category, error) {
	const op = "service.CategoryService.Create"

	if strings.TrimSpace(in.Name) == "" {
		return model.Category{}, errx.E(op, errx.Invalid, FieldErrors{"name": "name is required"})
	}
	if in.ParentID != nil {
		ok, err := s.queries.CategoryExists(ctx, *in.ParentID)
		if err != nil {
			return model.Category{}, store.MapError(op, err)
		}
		if !ok {
			return model.Category{}, errx.E(op, errx.NotFound, fmt.Errorf("parent category %d does not exist", *in.ParentID))
		}
	}

	base := slug.Make(in.Slug)
	if base == "" {
		base = slug.Make(in.Name)
	}
	if base == "" {
		return model.Category{}, errx.E(op, errx.Invalid, FieldErrors{"name": "name does not reduce to a usable slug"})
	}

	var lastErr error
	for attempt := 0; attempt <= slugInsertRetries; attempt++ {
		resolved, err := slug.Ensure(ctx, store.CategorySlugs(s.queries), base, 0)
		if err != nil {
			return model.Category{}, err
		}

		now := time.Now()
		params := store.CreateCategoryParams{
			Name:      strings.TrimSpace(in.Name),
			Slug:      resolved,
			Position:  in.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if in.ParentID != nil {
			params.ParentID = sql.NullInt64{Int64: *in.ParentID, Valid: true}
		}

		cat, err := s.queries.CreateCategory(ctx, params)
		switch {
		case err == nil:
			return cat, nil
		case store.IsUniqueViolation(err):
			lastErr = err
		default:
			return model.Category{}, store.MapError(op, err)
		}
	}
	return model.Category{}, errx.E(op, errx.Conflict, fmt.Errorf("slug %q kept colliding: %w", base, lastErr))
}

func (s *CategoryService) Get(ctx context.Context, id int64) (model.Category, error) {
	cat, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		return model.Category{}, store.MapError("service.CategoryService.Get", err)
	}
	return cat, nil
}

func (s *CategoryService) GetBySlug(ctx context.Context, slugStr string) (model.Category, error) {
	cat, err := s.queries.GetCategoryBySlug(ctx, slugStr)
	if err != nil {
		return model.Category{}, store.MapError("service.CategoryService.GetBySlug", err)
	}
	return cat, nil
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	items, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, store.MapError("service.CategoryService.List", err)
	}
	return items, nil
}

// Tree assembles the category hierarchy from the flat list. Siblings keep the
// position-then-name order of List.
func (s *CategoryService) Tree(ctx context.Context) ([]CategoryNode, error) {
	cats, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, store.MapError("service.CategoryService.Tree", err)
	}

	byParent := make(map[int64][]model.Category)
	var roots []model.Category
	for _, c := range cats {
		if c.ParentID.Valid {
			byParent[c.ParentID.Int64] = append(byParent[c.ParentID.Int64], c)
		} else {
			roots = append(roots, c)
		}
	}

	var build func(c model.Category) CategoryNode
	build = func(c model.Category) CategoryNode {
		node := CategoryNode{Category: c}
		for _, child := range byParent[c.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	nodes := make([]CategoryNode, 0, len(roots))
	for _, r := range roots {
		nodes = append(nodes, build(r))
	}
	return nodes, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, in UpdateCategoryInput) (model.Category, error) {
	const op = "service.CategoryService.Update"

	existing, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		return model.Category{}, store.MapError(op, err)
	}

	params := store.UpdateCategoryParams{
		ID:        existing.ID,
		Name:      existing.Name,
		Slug:      existing.Slug,
		ParentID:  existing.ParentID,
		Position:  existing.Position,
		UpdatedAt: time.Now(),
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return model.Category{}, errx.E(op, errx.Invalid, FieldErrors{"name": "name cannot be empty"})
		}
		params.Name = strings.TrimSpace(*in.Name)
	}
	if in.Position != nil {
		params.Position = *in.Position
	}

	if in.ParentID != nil {
		parent := *in.ParentID
		if parent.Valid {
			if parent.Int64 == id {
				return model.Category{}, errx.E(op, errx.Invalid, FieldErrors{"parent_id": "category cannot be its own parent"})
			}
			ok, err := s.queries.CategoryExists(ctx, parent.Int64)
			if err != nil {
				return model.Category{}, store.MapError(op, err)
			}
			if !ok {
				return model.Category{}, errx.E(op, errx.NotFound, fmt.Errorf("parent category %d does not exist", parent.Int64))
			}
			descendants, err := s.queries.GetDescendantCategoryIDs(ctx, id)
			if err != nil {
				return model.Category{}, store.MapError(op, err)
			}
			for _, did := range descendants {
				if did == parent.Int64 {
					return model.Category{}, errx.E(op, errx.Invalid,
						FieldErrors{"parent_id": "category cannot be moved under its own descendant"})
				}
			}
		}
		params.ParentID = parent
	}

	if in.Slug != nil {
		base := slug.Make(*in.Slug)
		if base == "" {
			base = slug.Make(params.Name)
		}
		if base == "" {
			return model.Category{}, errx.E(op, errx.Invalid, FieldErrors{"slug": "slug does not reduce to a usable value"})
		}
		resolved, err := slug.Ensure(ctx, store.CategorySlugs(s.queries), base, id)
		if err != nil {
			return model.Category{}, err
		}
		params.Slug = resolved
	}

	if err := s.queries.UpdateCategory(ctx, params); err != nil {
		return model.Category{}, store.MapError(op, err)
	}

	updated, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		return model.Category{}, store.MapError(op, err)
	}
	return updated, nil
}

// Delete refuses to remove a category that still has child categories or
// articles filed under it. The FK RESTRICT constraints back the same rule at
// the schema level.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	const op = "service.CategoryService.Delete"

	if _, err := s.queries.GetCategoryByID(ctx, id); err != nil {
		return store.MapError(op, err)
	}

	children, err := s.queries.CountCategoryChildren(ctx, id)
	if err != nil {
		return store.MapError(op, err)
	}
	if children > 0 {
		return errx.E(op, errx.Conflict, fmt.Errorf("category %d has %d child categories", id, children))
	}

	inUse, err := s.queries.CountNewsByCategory(ctx, id)
	if err != nil {
		return store.MapError(op, err)
	}
	if inUse > 0 {
		return errx.E(op, errx.Conflict, fmt.Errorf("category %d is referenced by %d articles", id, inUse))
	}

	if err := s.queries.DeleteCategory(ctx, id); err != nil {
		return store.MapError(op, err)
	}
	return nil
}

// TagInput carries the fields for creating a tag. Slug is optional; when
// empty it derives from the name.
type TagInput struct {
	Name string
	Slug string
}

// UpdateTagInput carries a partial tag update.
type UpdateTagInput struct {
	Name *string
	Slug *string
}

// TagService provides tag CRUD. Tag slugs are unique; deleting a tag drops
// its article links.
type TagService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewTagService creates a TagService.
func NewTagService(db *sql.DB, logger *slog.Logger) *TagService {
	return &TagService{queries: store.New(db), logger: logger}
}

func (s *TagService) Create(ctx context.Context, in TagInput) (model.Tag, error) {
	const op = "service.TagService.Create"

	if strings.TrimSpace(in.Name) == "" {
		return model.Tag{}, errx.E(op, errx.Invalid, FieldErrors{"name": "name is required"})
	}

	base := slug.Make(in.Slug)
	if base == "" {
		base = slug.Make(in.Name)
	}
	if base == "" {
		return model.Tag{}, errx.E(op, errx.Invalid, FieldErrors{"name": "name does not reduce to a usable slug"})
	}

	var lastErr error
	for attempt := 0; attempt <= slugInsertRetries; attempt++ {
		resolved, err := slug.Ensure(ctx, store.TagSlugs(s.queries), base, 0)
		if err != nil {
			return model.Tag{}, err
		}

		now := time.Now()
		tag, err := s.queries.CreateTag(ctx, store.CreateTagParams{
			Name:      strings.TrimSpace(in.Name),
			Slug:      resolved,
			CreatedAt: now,
			UpdatedAt: now,
		})
		switch {
		case err == nil:
			return tag, nil
		case store.IsUniqueViolation(err):
			lastErr = err
		default:
			return model.Tag{}, store.MapError(op, err)
		}
	}
	return model.Tag{}, errx.E(op, errx.Conflict, fmt.Errorf("slug %q kept colliding: %w", base, lastErr))
}

func (s *TagService) Get(ctx context.Context, id int64) (model.Tag, error) {
	tag, err := s.queries.GetTagByID(ctx, id)
	if err != nil {
		return model.Tag{}, store.MapError("service.TagService.Get", err)
	}
	return tag, nil
}

func (s *TagService) GetBySlug(ctx context.Context, slugStr string) (model.Tag, error) {
	tag, err := s.queries.GetTagBySlug(ctx, slugStr)
	if err != nil {
		return model.Tag{}, store.MapError("service.TagService.GetBySlug", err)
	}
	return tag, nil
}

func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	items, err := s.queries.ListTags(ctx)
	if err != nil {
		return nil, store.MapError("service.TagService.List", err)
	}
	return items, nil
}

func (s *TagService) Update(ctx context.Context, id int64, in UpdateTagInput) (model.Tag, error) {
	const op = "service.TagService.Update"

	existing, err := s.queries.GetTagByID(ctx, id)
	if err != nil {
		return model.Tag{}, store.MapError(op, err)
	}

	params := store.UpdateTagParams{
		ID:        existing.ID,
		Name:      existing.Name,
		Slug:      existing.Slug,
		UpdatedAt: time.Now(),
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return model.Tag{}, errx.E(op, errx.Invalid, FieldErrors{"name": "name cannot be empty"})
		}
		params.Name = strings.TrimSpace(*in.Name)
	}
	if in.Slug != nil {
		base := slug.Make(*in.Slug)
		if base == "" {
			base = slug.Make(params.Name)
		}
		if base == "" {
			return model.Tag{}, errx.E(op, errx.Invalid, FieldErrors{"slug": "slug does not reduce to a usable value"})
		}
		resolved, err := slug.Ensure(ctx, store.TagSlugs(s.queries), base, id)
		if err != nil {
			return model.Tag{}, err
		}
		params.Slug = resolved
	}

	if err := s.queries.UpdateTag(ctx, params); err != nil {
		return model.Tag{}, store.MapError(op, err)
	}

	updated, err := s.queries.GetTagByID(ctx, id)
	if err != nil {
		return model.Tag{}, store.MapError(op, err)
	}
	return updated, nil
}

func (s *TagService) Delete(ctx context.Context, id int64) error {
	const op = "service.TagService.Delete"

	if _, err := s.queries.GetTagByID(ctx, id); err != nil {
		return store.MapError(op, err)
	}
	if err := s.queries.DeleteTag(ctx, id); err != nil {
		return store.MapError(op, err)
	}
	return nil
}
