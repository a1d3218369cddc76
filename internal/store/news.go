// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
)

const newsColumns = `id, title, subtitle, summary, author_id, category_id, status, canonical_slug, featured, published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNews(row rowScanner) (model.News, error) {
	var n model.News
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Subtitle,
		&n.Summary,
		&n.AuthorID,
		&n.CategoryID,
		&n.Status,
		&n.Slug,
		&n.Featured,
		&n.PublishedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

type CreateNewsParams struct {
	Title       string
	Subtitle    string
	Summary     string
	AuthorID    int64
	CategoryID  int64
	Status      string
	Slug        sql.NullString
	Featured    bool
	PublishedAt sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreateNews(ctx context.Context, arg CreateNewsParams) (model.News, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO news (title, subtitle, summary, author_id, category_id, status, canonical_slug, featured, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+newsColumns,
		arg.Title, arg.Subtitle, arg.Summary, arg.AuthorID, arg.CategoryID,
		arg.Status, arg.Slug, arg.Featured, arg.PublishedAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanNews(row)
}

func (q *Queries) GetNewsByID(ctx context.Context, id int64) (model.News, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news WHERE id = ?`, id)
	return scanNews(row)
}

func (q *Queries) GetNewsBySlug(ctx context.Context, slug string) (model.News, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+newsColumns+` FROM news WHERE canonical_slug = ?`, slug)
	return scanNews(row)
}

// ListNewsParams filters ListNews and CountNews. Zero values mean "no filter";
// PublishedBefore additionally hides articles whose publish time is still in
// the future.
type ListNewsParams struct {
	Status          string
	CategoryID      int64
	AuthorID        int64
	TagID           int64
	FeaturedOnly    bool
	PublishedBefore sql.NullTime
	Limit           int64
	Offset          int64
}

func (p ListNewsParams) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if p.Status != "" {
		conds = append(conds, "n.status = ?")
		args = append(args, p.Status)
	}
	if p.CategoryID > 0 {
		conds = append(conds, "n.category_id = ?")
		args = append(args, p.CategoryID)
	}
	if p.AuthorID > 0 {
		conds = append(conds, "n.author_id = ?")
		args = append(args, p.AuthorID)
	}
	if p.TagID > 0 {
		conds = append(conds, "n.id IN (SELECT news_id FROM news_tags WHERE tag_id = ?)")
		args = append(args, p.TagID)
	}
	if p.FeaturedOnly {
		conds = append(conds, "n.featured = 1")
	}
	if p.PublishedBefore.Valid {
		conds = append(conds, "(n.published_at IS NULL OR n.published_at <= ?)")
		args = append(args, p.PublishedBefore.Time)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) ListNews(ctx context.Context, arg ListNewsParams) ([]model.News, error) {
	where, args := arg.where()
	query := `SELECT n.` + strings.ReplaceAll(newsColumns, ", ", ", n.") +
		` FROM news n` + where +
		` ORDER BY COALESCE(n.published_at, n.created_at) DESC, n.id DESC LIMIT ? OFFSET ?`
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.News
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (q *Queries) CountNews(ctx context.Context, arg ListNewsParams) (int64, error) {
	where, args := arg.where()
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news n`+where, args...).Scan(&count)
	return count, err
}

type UpdateNewsParams struct {
	ID          int64
	Title       string
	Subtitle    string
	Summary     string
	AuthorID    int64
	CategoryID  int64
	Status      string
	Slug        sql.NullString
	Featured    bool
	PublishedAt sql.NullTime
	UpdatedAt   time.Time
}

func (q *Queries) UpdateNews(ctx context.Context, arg UpdateNewsParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE news
		SET title = ?, subtitle = ?, summary = ?, author_id = ?, category_id = ?,
		    status = ?, canonical_slug = ?, featured = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Subtitle, arg.Summary, arg.AuthorID, arg.CategoryID,
		arg.Status, arg.Slug, arg.Featured, arg.PublishedAt, arg.UpdatedAt, arg.ID,
	)
	return err
}

// UpdateNewsSlug sets only the canonical slug; the backfill path uses it so a
// lazily resolved slug never touches the rest of the row.
func (q *Queries) UpdateNewsSlug(ctx context.Context, id int64, slug string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE news SET canonical_slug = ? WHERE id = ?`, slug, id)
	return err
}

func (q *Queries) DeleteNews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, id)
	return err
}

func (q *Queries) NewsExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

// CountNewsByIDs reports how many of ids exist; callers use it to reject
// aggregates that reference missing articles before opening a transaction.
func (q *Queries) CountNewsByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM news WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// NewsSitemapEntry carries the slug and last-modified pair a sitemap URL needs.
type NewsSitemapEntry struct {
	Slug      string
	UpdatedAt time.Time
}

// ListNewsForSitemap returns every published, currently visible article that
// has a slug, newest first.
func (q *Queries) ListNewsForSitemap(ctx context.Context) ([]NewsSitemapEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT canonical_slug, updated_at FROM news
		WHERE status = ? AND canonical_slug IS NOT NULL
		  AND (published_at IS NULL OR published_at <= ?)
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC`,
		model.NewsStatusPublished, time.Now(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []NewsSitemapEntry
	for rows.Next() {
		var e NewsSitemapEntry
		if err := rows.Scan(&e.Slug, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *Queries) NewsSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE canonical_slug = ?`, slug).Scan(&count)
	return count > 0, err
}

func (q *Queries) NewsSlugExistsExcluding(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE canonical_slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count > 0, err
}
