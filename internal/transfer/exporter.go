// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// exportListLimit bounds the row count of the list queries behind an export.
const exportListLimit = 100000

// Exporter serializes newsroom content into a transfer document. Reads go
// through the service layer, so articles without a canonical slug get one
// backfilled on the way out and the document always carries resolvable slugs.
type Exporter struct {
	authors    *service.AuthorService
	categories *service.CategoryService
	tags       *service.TagService
	news       *service.NewsService
	logger     *slog.Logger
}

// NewExporter creates an Exporter over the given services.
func NewExporter(
	authors *service.AuthorService,
	categories *service.CategoryService,
	tags *service.TagService,
	news *service.NewsService,
	logger *slog.Logger,
) *Exporter {
	return &Exporter{
		authors:    authors,
		categories: categories,
		tags:       tags,
		news:       news,
		logger:     logger,
	}
}

// Export generates a transfer document based on the provided options.
func (e *Exporter) Export(ctx context.Context, opts ExportOptions) (*ExportData, error) {
	data := &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
	}

	authors, err := e.authors.List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := e.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := e.tags.List(ctx)
	if err != nil {
		return nil, err
	}

	// Lookup maps from database IDs to the natural keys the document uses.
	authorEmails := make(map[int64]string, len(authors))
	for _, a := range authors {
		authorEmails[a.ID] = a.Email
	}
	categorySlugs := make(map[int64]string, len(categories))
	for _, c := range categories {
		categorySlugs[c.ID] = c.Slug
	}
	tagSlugs := make(map[int64]string, len(tags))
	for _, t := range tags {
		tagSlugs[t.ID] = t.Slug
	}

	if opts.IncludeAuthors {
		data.Authors = make([]ExportAuthor, 0, len(authors))
		for _, a := range authors {
			data.Authors = append(data.Authors, ExportAuthor{
				Name:      a.Name,
				Email:     a.Email,
				Bio:       a.Bio,
				AvatarURL: a.AvatarURL,
				CreatedAt: a.CreatedAt,
				UpdatedAt: a.UpdatedAt,
			})
		}
	}

	if opts.IncludeCategories {
		data.Categories = make([]ExportCategory, 0, len(categories))
		for _, c := range categories {
			exportCat := ExportCategory{
				Name:      c.Name,
				Slug:      c.Slug,
				Position:  c.Position,
				CreatedAt: c.CreatedAt,
				UpdatedAt: c.UpdatedAt,
			}
			if c.ParentID.Valid {
				exportCat.ParentSlug = categorySlugs[c.ParentID.Int64]
			}
			data.Categories = append(data.Categories, exportCat)
		}
	}

	if opts.IncludeTags {
		data.Tags = make([]ExportTag, 0, len(tags))
		for _, t := range tags {
			data.Tags = append(data.Tags, ExportTag{
				Name:      t.Name,
				Slug:      t.Slug,
				CreatedAt: t.CreatedAt,
				UpdatedAt: t.UpdatedAt,
			})
		}
	}

	if opts.IncludeNews {
		if err := e.exportNews(ctx, data, opts, authorEmails, categorySlugs, tagSlugs); err != nil {
			return nil, err
		}
	}

	return data, nil
}

// ExportToWriter writes the export as indented JSON to the provided writer.
func (e *Exporter) ExportToWriter(ctx context.Context, opts ExportOptions, w io.Writer) error {
	data, err := e.Export(ctx, opts)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// exportNews loads every matching aggregate and appends it to the document.
// Articles that fail to load are logged and left out rather than failing the
// whole export.
func (e *Exporter) exportNews(
	ctx context.Context,
	data *ExportData,
	opts ExportOptions,
	authorEmails map[int64]string,
	categorySlugs map[int64]string,
	tagSlugs map[int64]string,
) error {
	params := store.ListNewsParams{Limit: exportListLimit}
	if opts.NewsStatus != "" && opts.NewsStatus != "all" {
		params.Status = opts.NewsStatus
	}

	rows, _, err := e.news.List(ctx, params)
	if err != nil {
		return err
	}

	aggregates := make([]model.Aggregate, 0, len(rows))
	newsSlugs := make(map[int64]string, len(rows))
	for _, row := range rows {
		agg, err := e.news.Get(ctx, row.ID)
		if err != nil {
			e.logger.Warn("failed to load news aggregate for export", "id", row.ID, "error", err)
			continue
		}
		aggregates = append(aggregates, agg)
		if agg.News.Slug.Valid {
			newsSlugs[agg.News.ID] = agg.News.Slug.String
		}
	}

	data.News = make([]ExportNews, 0, len(aggregates))
	for _, agg := range aggregates {
		data.News = append(data.News, e.newsToExport(ctx, agg, authorEmails, categorySlugs, tagSlugs, newsSlugs))
	}
	return nil
}

// newsToExport converts one aggregate into its document form, translating
// every ID reference into a natural key.
func (e *Exporter) newsToExport(
	ctx context.Context,
	agg model.Aggregate,
	authorEmails map[int64]string,
	categorySlugs map[int64]string,
	tagSlugs map[int64]string,
	newsSlugs map[int64]string,
) ExportNews {
	n := agg.News

	out := ExportNews{
		Title:        n.Title,
		Subtitle:     n.Subtitle,
		Summary:      n.Summary,
		Status:       n.Status,
		AuthorEmail:  authorEmails[n.AuthorID],
		CategorySlug: categorySlugs[n.CategoryID],
		Featured:     n.Featured,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
	if n.Slug.Valid {
		out.Slug = n.Slug.String
	}
	if n.PublishedAt.Valid {
		t := n.PublishedAt.Time
		out.PublishedAt = &t
	}

	for _, b := range agg.Blocks {
		exportBlock := ExportBlock{
			Type:     b.Type,
			Content:  b.Content,
			AltText:  b.AltText,
			Position: b.Position,
		}
		if b.MediaURL.Valid {
			exportBlock.MediaURL = b.MediaURL.String
		}
		out.Blocks = append(out.Blocks, exportBlock)
	}

	for _, img := range agg.Images {
		out.Images = append(out.Images, ExportImage{
			URL:      img.URL,
			Caption:  img.Caption,
			AltText:  img.AltText,
			Position: img.Position,
		})
	}

	for _, tagID := range agg.TagIDs {
		if slug, ok := tagSlugs[tagID]; ok {
			out.Tags = append(out.Tags, slug)
		}
	}

	for _, rel := range agg.Related {
		slug := e.resolveNewsSlug(ctx, rel.RelatedID, newsSlugs)
		if slug == "" {
			e.logger.Warn("related article has no resolvable slug, dropping link",
				"news_id", n.ID, "related_id", rel.RelatedID)
			continue
		}
		exportRel := ExportRelated{Slug: slug}
		if rel.RelationType.Valid {
			exportRel.RelationType = rel.RelationType.String
		}
		out.Related = append(out.Related, exportRel)
	}

	return out
}

// resolveNewsSlug returns the slug for a news ID, loading the article when it
// sits outside the exported set (a related link can point at a draft while
// only published articles are exported).
func (e *Exporter) resolveNewsSlug(ctx context.Context, id int64, newsSlugs map[int64]string) string {
	if slug, ok := newsSlugs[id]; ok {
		return slug
	}
	agg, err := e.news.Get(ctx, id)
	if err != nil || !agg.News.Slug.Valid {
		return ""
	}
	newsSlugs[id] = agg.News.Slug.String
	return agg.News.Slug.String
}
