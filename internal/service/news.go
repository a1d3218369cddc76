// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic services.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/slug"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// htmlSanitizer provides a reusable HTML sanitization policy for block content.
// It uses bluemonday's UGCPolicy which allows safe HTML tags for user-generated
// content while stripping potentially dangerous elements like <script>.
var htmlSanitizer = bluemonday.UGCPolicy()

// slugInsertRetries bounds how often a write is re-run after the UNIQUE index
// on canonical_slug rejects a slug that passed the pre-check. The index is the
// authority; the resolver is a best-effort pre-check.
const slugInsertRetries = 3

// BlockInput describes one content block of a news aggregate.
type BlockInput struct {
	Type     string
	Content  string
	MediaURL string
	AltText  string
	Position *int64
}

// ImageInput describes one gallery image of a news aggregate.
type ImageInput struct {
	URL      string
	Caption  string
	AltText  string
	Position *int64
}

// RelatedInput describes one directed link to another news article.
type RelatedInput struct {
	RelatedID    int64
	RelationType string
}

// CreateNewsInput carries a complete news aggregate for creation. Slug is an
// optional explicit candidate; when empty the slug derives from the title.
type CreateNewsInput struct {
	Title       string
	Subtitle    string
	Summary     string
	AuthorID    int64
	CategoryID  int64
	Status      string
	Slug        string
	Featured    bool
	PublishedAt *time.Time
	Blocks      []BlockInput
	Images      []ImageInput
	TagIDs      []int64
	Related     []RelatedInput
}

// UpdateNewsInput carries a partial update. Nil scalar pointers leave the
// stored value untouched. Collections are tri-state: a nil pointer leaves the
// collection untouched, a non-nil pointer (even to an empty slice) replaces
// the stored set entirely.
type UpdateNewsInput struct {
	Title       *string
	Subtitle    *string
	Summary     *string
	AuthorID    *int64
	CategoryID  *int64
	Status      *string
	Slug        *string
	Featured    *bool
	PublishedAt *sql.NullTime
	Blocks      *[]BlockInput
	Images      *[]ImageInput
	TagIDs      *[]int64
	Related     *[]RelatedInput
}

// NewsService keeps a news row and its four child collections (blocks, images,
// tag links, related links) synchronized. Every write runs inside a single
// transaction: readers observe the previous aggregate or the new one, never a
// mix, and a failing step leaves nothing behind.
type NewsService struct {
	db      *sql.DB
	queries *store.Queries
	logger  *slog.Logger
}

// NewNewsService creates a NewsService on top of an open database handle.
func NewNewsService(db *sql.DB, logger *slog.Logger) *NewsService {
	return &NewsService{
		db:      db,
		queries: store.New(db),
		logger:  logger,
	}
}

// Create inserts a news aggregate and returns the generated id. The slug is
// resolved before the insert; if a concurrent writer claims it between the
// check and the insert, the whole transaction is re-run with a re-resolved
// slug a bounded number of times before giving up with a conflict.
func (s *NewsService) Create(ctx context.Context, in CreateNewsInput) (int64, error) {
	const op = "service.NewsService.Create"

	in.TagIDs = dedupeIDs(in.TagIDs)
	in.Related = dedupeRelated(in.Related)

	if err := s.validateCreate(ctx, op, in); err != nil {
		return 0, err
	}

	base := slug.Make(in.Slug)
	if base == "" {
		base = slug.Make(in.Title)
	}
	if base == "" {
		return 0, errx.E(op, errx.Invalid, FieldErrors{"title": "title does not reduce to a usable slug"})
	}

	var lastErr error
	for attempt := 0; attempt <= slugInsertRetries; attempt++ {
		id, err := s.createOnce(ctx, in, base)
		switch {
		case err == nil:
			return id, nil
		case store.IsUniqueViolation(err):
			lastErr = err
		case errx.KindOf(err) != errx.Unknown:
			return 0, err
		default:
			return 0, store.MapError(op, err)
		}
	}
	return 0, errx.E(op, errx.Conflict, fmt.Errorf("slug %q kept colliding: %w", base, lastErr))
}

func (s *NewsService) createOnce(ctx context.Context, in CreateNewsInput, base string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	resolved, err := slug.Ensure(ctx, store.NewsSlugs(qtx), base, 0)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	params := store.CreateNewsParams{
		Title:      strings.TrimSpace(in.Title),
		Subtitle:   in.Subtitle,
		Summary:    in.Summary,
		AuthorID:   in.AuthorID,
		CategoryID: in.CategoryID,
		Status:     in.Status,
		Slug:       sql.NullString{String: resolved, Valid: true},
		Featured:   in.Featured,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.PublishedAt != nil {
		params.PublishedAt = sql.NullTime{Time: *in.PublishedAt, Valid: true}
	} else if in.Status == model.NewsStatusPublished {
		// Publishing without an explicit timestamp stamps it now.
		params.PublishedAt = sql.NullTime{Time: now, Valid: true}
	}

	news, err := qtx.CreateNews(ctx, params)
	if err != nil {
		return 0, err
	}

	if err := insertChildren(ctx, qtx, news.ID, in.Blocks, in.Images, in.TagIDs, in.Related); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return news.ID, nil
}

// Get loads a full aggregate by id. An article stored without a canonical slug
// gets one resolved and persisted on this read path; if that backfill fails
// the read still succeeds and the article is served as stored.
func (s *NewsService) Get(ctx context.Context, id int64) (model.Aggregate, error) {
	const op = "service.NewsService.Get"

	news, err := s.queries.GetNewsByID(ctx, id)
	if err != nil {
		return model.Aggregate{}, store.MapError(op, err)
	}

	if !news.Slug.Valid {
		news = s.backfillSlug(ctx, news)
	}

	agg, err := s.loadAggregate(ctx, news)
	if err != nil {
		return model.Aggregate{}, store.MapError(op, err)
	}
	return agg, nil
}

// GetBySlug loads a full aggregate by its canonical slug.
func (s *NewsService) GetBySlug(ctx context.Context, slugStr string) (model.Aggregate, error) {
	const op = "service.NewsService.GetBySlug"

	news, err := s.queries.GetNewsBySlug(ctx, slugStr)
	if err != nil {
		return model.Aggregate{}, store.MapError(op, err)
	}

	agg, err := s.loadAggregate(ctx, news)
	if err != nil {
		return model.Aggregate{}, store.MapError(op, err)
	}
	return agg, nil
}

// List returns matching news rows plus the unpaged total.
func (s *NewsService) List(ctx context.Context, p store.ListNewsParams) ([]model.News, int64, error) {
	const op = "service.NewsService.List"

	items, err := s.queries.ListNews(ctx, p)
	if err != nil {
		return nil, 0, store.MapError(op, err)
	}
	total, err := s.queries.CountNews(ctx, p)
	if err != nil {
		return nil, 0, store.MapError(op, err)
	}
	return items, total, nil
}

// Update applies a partial update to the news row and replaces every child
// collection that was explicitly supplied, all in one transaction. Supplying
// an empty collection clears it; omitting the field leaves it untouched.
func (s *NewsService) Update(ctx context.Context, id int64, in UpdateNewsInput) error {
	const op = "service.NewsService.Update"

	if in.TagIDs != nil {
		deduped := dedupeIDs(*in.TagIDs)
		in.TagIDs = &deduped
	}
	if in.Related != nil {
		deduped := dedupeRelated(*in.Related)
		in.Related = &deduped
	}

	if err := s.validateUpdate(ctx, op, id, in); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= slugInsertRetries; attempt++ {
		err := s.updateOnce(ctx, id, in)
		switch {
		case err == nil:
			return nil
		case store.IsUniqueViolation(err):
			lastErr = err
		case errx.KindOf(err) != errx.Unknown:
			return err
		default:
			return store.MapError(op, err)
		}
	}
	return errx.E(op, errx.Conflict, fmt.Errorf("slug kept colliding: %w", lastErr))
}

func (s *NewsService) updateOnce(ctx context.Context, id int64, in UpdateNewsInput) error {
	const op = "service.NewsService.Update"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	existing, err := qtx.GetNewsByID(ctx, id)
	if err != nil {
		return err
	}

	params := store.UpdateNewsParams{
		ID:          existing.ID,
		Title:       existing.Title,
		Subtitle:    existing.Subtitle,
		Summary:     existing.Summary,
		AuthorID:    existing.AuthorID,
		CategoryID:  existing.CategoryID,
		Status:      existing.Status,
		Slug:        existing.Slug,
		Featured:    existing.Featured,
		PublishedAt: existing.PublishedAt,
		UpdatedAt:   time.Now(),
	}

	if in.Title != nil {
		params.Title = strings.TrimSpace(*in.Title)
	}
	if in.Subtitle != nil {
		params.Subtitle = *in.Subtitle
	}
	if in.Summary != nil {
		params.Summary = *in.Summary
	}
	if in.AuthorID != nil {
		params.AuthorID = *in.AuthorID
	}
	if in.CategoryID != nil {
		params.CategoryID = *in.CategoryID
	}
	if in.Status != nil {
		params.Status = *in.Status
	}
	if in.Featured != nil {
		params.Featured = *in.Featured
	}
	if in.PublishedAt != nil {
		params.PublishedAt = *in.PublishedAt
	}

	// Publishing a previously unstamped article without an explicit
	// timestamp stamps it now.
	if params.Status == model.NewsStatusPublished && !params.PublishedAt.Valid && in.PublishedAt == nil {
		params.PublishedAt = sql.NullTime{Time: params.UpdatedAt, Valid: true}
	}

	if in.Slug != nil {
		base := slug.Make(*in.Slug)
		if base == "" {
			base = slug.Make(params.Title)
		}
		if base == "" {
			return errx.E(op, errx.Invalid, FieldErrors{"slug": "slug does not reduce to a usable value"})
		}
		resolved, err := slug.Ensure(ctx, store.NewsSlugs(qtx), base, id)
		if err != nil {
			return err
		}
		params.Slug = sql.NullString{String: resolved, Valid: true}
	}

	if err := qtx.UpdateNews(ctx, params); err != nil {
		return err
	}

	if in.Blocks != nil {
		if err := qtx.DeleteBlocksByNews(ctx, id); err != nil {
			return err
		}
	}
	if in.Images != nil {
		if err := qtx.DeleteImagesByNews(ctx, id); err != nil {
			return err
		}
	}
	if in.TagIDs != nil {
		if err := qtx.DeleteNewsTags(ctx, id); err != nil {
			return err
		}
	}
	if in.Related != nil {
		if err := qtx.DeleteRelatedByNews(ctx, id); err != nil {
			return err
		}
	}

	err = insertChildren(ctx, qtx, id,
		derefOr(in.Blocks, nil),
		derefOr(in.Images, nil),
		derefOr(in.TagIDs, nil),
		derefOr(in.Related, nil),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a news aggregate. Child rows are deleted explicitly inside
// the transaction; the schema's ON DELETE CASCADE is the backstop, not the
// mechanism. Incoming related links from other articles are removed too.
func (s *NewsService) Delete(ctx context.Context, id int64) error {
	const op = "service.NewsService.Delete"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.MapError(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	if _, err := qtx.GetNewsByID(ctx, id); err != nil {
		return store.MapError(op, err)
	}

	steps := []func(context.Context, int64) error{
		qtx.DeleteBlocksByNews,
		qtx.DeleteImagesByNews,
		qtx.DeleteNewsTags,
		qtx.DeleteRelatedByNews,
		qtx.DeleteRelatedToNews,
		qtx.DeleteNews,
	}
	for _, step := range steps {
		if err := step(ctx, id); err != nil {
			return store.MapError(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return store.MapError(op, err)
	}
	return nil
}

// loadAggregate attaches every child collection to a news row.
func (s *NewsService) loadAggregate(ctx context.Context, news model.News) (model.Aggregate, error) {
	agg := model.Aggregate{News: news}

	var err error
	if agg.Blocks, err = s.queries.ListBlocksByNews(ctx, news.ID); err != nil {
		return model.Aggregate{}, err
	}
	if agg.Images, err = s.queries.ListImagesByNews(ctx, news.ID); err != nil {
		return model.Aggregate{}, err
	}
	if agg.TagIDs, err = s.queries.ListTagIDsByNews(ctx, news.ID); err != nil {
		return model.Aggregate{}, err
	}
	if agg.Related, err = s.queries.ListRelatedByNews(ctx, news.ID); err != nil {
		return model.Aggregate{}, err
	}
	return agg, nil
}

// backfillSlug derives, resolves and persists a slug for an article stored
// without one. Backfill failure is logged and never fails the read.
func (s *NewsService) backfillSlug(ctx context.Context, news model.News) model.News {
	base := slug.Make(news.Title)
	if base == "" {
		base = fmt.Sprintf("news-%d", news.ID)
	}

	resolved, err := slug.Ensure(ctx, store.NewsSlugs(s.queries), base, news.ID)
	if err != nil {
		s.logger.Warn("slug backfill resolution failed", "news_id", news.ID, "error", err)
		return news
	}
	if err := s.queries.UpdateNewsSlug(ctx, news.ID, resolved); err != nil {
		s.logger.Warn("slug backfill persist failed", "news_id", news.ID, "slug", resolved, "error", err)
		return news
	}

	news.Slug = sql.NullString{String: resolved, Valid: true}
	return news
}

// insertChildren writes all four child collections for one article in caller
// order. Positions default to the 0-based index of the supplied order unless
// an entry carries an explicit position.
func insertChildren(ctx context.Context, q *store.Queries, newsID int64, blocks []BlockInput, images []ImageInput, tagIDs []int64, related []RelatedInput) error {
	for i, b := range blocks {
		params := store.CreateBlockParams{
			NewsID:   newsID,
			Type:     b.Type,
			Content:  sanitizeBlockContent(b.Type, b.Content),
			AltText:  b.AltText,
			Position: childPosition(i, b.Position),
		}
		if b.MediaURL != "" {
			params.MediaURL = sql.NullString{String: b.MediaURL, Valid: true}
		}
		if _, err := q.CreateBlock(ctx, params); err != nil {
			return err
		}
	}

	for i, img := range images {
		params := store.CreateImageParams{
			NewsID:   newsID,
			URL:      img.URL,
			Caption:  img.Caption,
			AltText:  img.AltText,
			Position: childPosition(i, img.Position),
		}
		if _, err := q.CreateImage(ctx, params); err != nil {
			return err
		}
	}

	for _, tagID := range tagIDs {
		if err := q.AddNewsTag(ctx, newsID, tagID); err != nil {
			return err
		}
	}

	for _, rel := range related {
		params := store.AddRelatedLinkParams{
			NewsID:    newsID,
			RelatedID: rel.RelatedID,
		}
		if rel.RelationType != "" {
			params.RelationType = sql.NullString{String: rel.RelationType, Valid: true}
		}
		if err := q.AddRelatedLink(ctx, params); err != nil {
			return err
		}
	}

	return nil
}

func (s *NewsService) validateCreate(ctx context.Context, op string, in CreateNewsInput) error {
	fields := FieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if !model.ValidNewsStatus(in.Status) {
		fields["status"] = "status must be 'draft' or 'published'"
	}
	if in.AuthorID <= 0 {
		fields["author_id"] = "author_id is required"
	}
	if in.CategoryID <= 0 {
		fields["category_id"] = "category_id is required"
	}
	validateChildFields(fields, in.Blocks, in.Images)
	if len(fields) > 0 {
		return errx.E(op, errx.Invalid, fields)
	}

	return s.checkReferences(ctx, op, &in.AuthorID, &in.CategoryID, in.TagIDs, in.Related, 0)
}

func (s *NewsService) validateUpdate(ctx context.Context, op string, id int64, in UpdateNewsInput) error {
	fields := FieldErrors{}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		fields["title"] = "title cannot be empty"
	}
	if in.Status != nil && !model.ValidNewsStatus(*in.Status) {
		fields["status"] = "status must be 'draft' or 'published'"
	}
	var blocks []BlockInput
	if in.Blocks != nil {
		blocks = *in.Blocks
	}
	var images []ImageInput
	if in.Images != nil {
		images = *in.Images
	}
	validateChildFields(fields, blocks, images)
	if len(fields) > 0 {
		return errx.E(op, errx.Invalid, fields)
	}

	var tagIDs []int64
	if in.TagIDs != nil {
		tagIDs = *in.TagIDs
	}
	var related []RelatedInput
	if in.Related != nil {
		related = *in.Related
	}
	return s.checkReferences(ctx, op, in.AuthorID, in.CategoryID, tagIDs, related, id)
}

// validateChildFields collects per-entry problems for blocks and images.
func validateChildFields(fields FieldErrors, blocks []BlockInput, images []ImageInput) {
	for i, b := range blocks {
		if !model.ValidBlockType(b.Type) {
			fields[fmt.Sprintf("blocks[%d].type", i)] = "type must be 'text', 'image' or 'quote'"
		}
	}
	for i, img := range images {
		if strings.TrimSpace(img.URL) == "" {
			fields[fmt.Sprintf("images[%d].url", i)] = "url is required"
		}
	}
}

// checkReferences verifies that every referenced entity exists before a
// transaction is opened. selfID guards against an article relating to itself
// on update; zero means the article does not exist yet.
func (s *NewsService) checkReferences(ctx context.Context, op string, authorID, categoryID *int64, tagIDs []int64, related []RelatedInput, selfID int64) error {
	if authorID != nil {
		ok, err := s.queries.AuthorExists(ctx, *authorID)
		if err != nil {
			return store.MapError(op, err)
		}
		if !ok {
			return errx.E(op, errx.NotFound, fmt.Errorf("author %d does not exist", *authorID))
		}
	}

	if categoryID != nil {
		ok, err := s.queries.CategoryExists(ctx, *categoryID)
		if err != nil {
			return store.MapError(op, err)
		}
		if !ok {
			return errx.E(op, errx.NotFound, fmt.Errorf("category %d does not exist", *categoryID))
		}
	}

	if len(tagIDs) > 0 {
		count, err := s.queries.CountTagsByIDs(ctx, tagIDs)
		if err != nil {
			return store.MapError(op, err)
		}
		if count != int64(len(tagIDs)) {
			return errx.E(op, errx.NotFound, fmt.Errorf("%d of %d referenced tags do not exist", int64(len(tagIDs))-count, len(tagIDs)))
		}
	}

	if len(related) > 0 {
		ids := make([]int64, 0, len(related))
		for _, rel := range related {
			if selfID > 0 && rel.RelatedID == selfID {
				return errx.E(op, errx.Invalid, FieldErrors{"related": "an article cannot relate to itself"})
			}
			ids = append(ids, rel.RelatedID)
		}
		count, err := s.queries.CountNewsByIDs(ctx, ids)
		if err != nil {
			return store.MapError(op, err)
		}
		if count != int64(len(ids)) {
			return errx.E(op, errx.NotFound, fmt.Errorf("%d of %d related articles do not exist", int64(len(ids))-count, len(ids)))
		}
	}

	return nil
}

func sanitizeBlockContent(blockType, content string) string {
	switch blockType {
	case model.BlockTypeText, model.BlockTypeQuote:
		return htmlSanitizer.Sanitize(content)
	default:
		return content
	}
}

func childPosition(index int, explicit *int64) int64 {
	if explicit != nil {
		return *explicit
	}
	return int64(index)
}

// dedupeIDs drops repeated ids preserving first occurrence order.
func dedupeIDs(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// dedupeRelated drops repeated target ids; the first entry for a target wins,
// matching the store's INSERT OR IGNORE behavior.
func dedupeRelated(related []RelatedInput) []RelatedInput {
	if len(related) < 2 {
		return related
	}
	seen := make(map[int64]struct{}, len(related))
	out := related[:0]
	for _, rel := range related {
		if _, ok := seen[rel.RelatedID]; ok {
			continue
		}
		seen[rel.RelatedID] = struct{}{}
		out = append(out, rel)
	}
	return out
}

func derefOr[T any](p *[]T, fallback []T) []T {
	if p != nil {
		return *p
	}
	return fallback
}
