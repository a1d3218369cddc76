// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
)

const mediaColumns = `id, uuid, filename, original_name, mime_type, size, width, height, alt_text, created_at`

func scanMedia(row rowScanner) (model.Media, error) {
	var m model.Media
	err := row.Scan(&m.ID, &m.UUID, &m.Filename, &m.OriginalName, &m.MimeType,
		&m.Size, &m.Width, &m.Height, &m.AltText, &m.CreatedAt)
	return m, err
}

type CreateMediaParams struct {
	UUID         string
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	Width        sql.NullInt64
	Height       sql.NullInt64
	AltText      string
	CreatedAt    time.Time
}

func (q *Queries) CreateMedia(ctx context.Context, arg CreateMediaParams) (model.Media, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO media (uuid, filename, original_name, mime_type, size, width, height, alt_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+mediaColumns,
		arg.UUID, arg.Filename, arg.OriginalName, arg.MimeType, arg.Size,
		arg.Width, arg.Height, arg.AltText, arg.CreatedAt,
	)
	return scanMedia(row)
}

func (q *Queries) GetMediaByID(ctx context.Context, id int64) (model.Media, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	return scanMedia(row)
}

func (q *Queries) ListMedia(ctx context.Context, limit, offset int64) ([]model.Media, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (q *Queries) CountMedia(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&count)
	return count, err
}

func (q *Queries) DeleteMedia(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	return err
}
