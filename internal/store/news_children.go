// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"

	"github.com/olegiv/newsdesk-go/internal/model"
)

type CreateBlockParams struct {
	NewsID   int64
	Type     string
	Content  string
	MediaURL sql.NullString
	AltText  string
	Position int64
}

func (q *Queries) CreateBlock(ctx context.Context, arg CreateBlockParams) (model.Block, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO news_blocks (news_id, block_type, content, media_url, alt_text, position)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, news_id, block_type, content, media_url, alt_text, position`,
		arg.NewsID, arg.Type, arg.Content, arg.MediaURL, arg.AltText, arg.Position,
	)
	var b model.Block
	err := row.Scan(&b.ID, &b.NewsID, &b.Type, &b.Content, &b.MediaURL, &b.AltText, &b.Position)
	return b, err
}

func (q *Queries) ListBlocksByNews(ctx context.Context, newsID int64) ([]model.Block, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, news_id, block_type, content, media_url, alt_text, position
		FROM news_blocks WHERE news_id = ? ORDER BY position, id`, newsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.ID, &b.NewsID, &b.Type, &b.Content, &b.MediaURL, &b.AltText, &b.Position); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteBlocksByNews(ctx context.Context, newsID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news_blocks WHERE news_id = ?`, newsID)
	return err
}

type CreateImageParams struct {
	NewsID   int64
	URL      string
	Caption  string
	AltText  string
	Position int64
}

func (q *Queries) CreateImage(ctx context.Context, arg CreateImageParams) (model.Image, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO news_images (news_id, url, caption, alt_text, position)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, news_id, url, caption, alt_text, position`,
		arg.NewsID, arg.URL, arg.Caption, arg.AltText, arg.Position,
	)
	var img model.Image
	err := row.Scan(&img.ID, &img.NewsID, &img.URL, &img.Caption, &img.AltText, &img.Position)
	return img, err
}

func (q *Queries) ListImagesByNews(ctx context.Context, newsID int64) ([]model.Image, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, news_id, url, caption, alt_text, position
		FROM news_images WHERE news_id = ? ORDER BY position, id`, newsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.NewsID, &img.URL, &img.Caption, &img.AltText, &img.Position); err != nil {
			return nil, err
		}
		items = append(items, img)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteImagesByNews(ctx context.Context, newsID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news_images WHERE news_id = ?`, newsID)
	return err
}

// AddNewsTag links a tag to an article. Duplicate links are ignored, so
// repeated ids in one request and re-sent requests stay idempotent.
func (q *Queries) AddNewsTag(ctx context.Context, newsID, tagID int64) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO news_tags (news_id, tag_id) VALUES (?, ?)`, newsID, tagID)
	return err
}

func (q *Queries) ListTagIDsByNews(ctx context.Context, newsID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id FROM tags t
		JOIN news_tags nt ON nt.tag_id = t.id
		WHERE nt.news_id = ? ORDER BY t.name`, newsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) ListTagsByNews(ctx context.Context, newsID int64) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.created_at, t.updated_at FROM tags t
		JOIN news_tags nt ON nt.tag_id = t.id
		WHERE nt.news_id = ? ORDER BY t.name`, newsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, tag)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteNewsTags(ctx context.Context, newsID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news_tags WHERE news_id = ?`, newsID)
	return err
}

type AddRelatedLinkParams struct {
	NewsID       int64
	RelatedID    int64
	RelationType sql.NullString
}

// AddRelatedLink records a directed association. Duplicates are ignored; the
// first write for a (news, related) pair wins, including its relation type.
func (q *Queries) AddRelatedLink(ctx context.Context, arg AddRelatedLinkParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO news_related (news_id, related_id, relation_type) VALUES (?, ?, ?)`,
		arg.NewsID, arg.RelatedID, arg.RelationType)
	return err
}

func (q *Queries) ListRelatedByNews(ctx context.Context, newsID int64) ([]model.RelatedLink, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT news_id, related_id, relation_type
		FROM news_related WHERE news_id = ? ORDER BY related_id`, newsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.RelatedLink
	for rows.Next() {
		var l model.RelatedLink
		if err := rows.Scan(&l.NewsID, &l.RelatedID, &l.RelationType); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// DeleteRelatedByNews removes outgoing links only; incoming links from other
// articles are a separate delete on the aggregate removal path.
func (q *Queries) DeleteRelatedByNews(ctx context.Context, newsID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news_related WHERE news_id = ?`, newsID)
	return err
}

func (q *Queries) DeleteRelatedToNews(ctx context.Context, relatedID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM news_related WHERE related_id = ?`, relatedID)
	return err
}
