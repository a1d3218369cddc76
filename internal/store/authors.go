// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
)

const authorColumns = `id, name, email, bio, avatar_url, created_at, updated_at`

func scanAuthor(row rowScanner) (model.Author, error) {
	var a model.Author
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Bio, &a.AvatarURL, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

type CreateAuthorParams struct {
	Name      string
	Email     string
	Bio       string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateAuthor(ctx context.Context, arg CreateAuthorParams) (model.Author, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO authors (name, email, bio, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+authorColumns,
		arg.Name, arg.Email, arg.Bio, arg.AvatarURL, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanAuthor(row)
}

func (q *Queries) GetAuthorByID(ctx context.Context, id int64) (model.Author, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE id = ?`, id)
	return scanAuthor(row)
}

func (q *Queries) GetAuthorByEmail(ctx context.Context, email string) (model.Author, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+authorColumns+` FROM authors WHERE email = ?`, email)
	return scanAuthor(row)
}

func (q *Queries) ListAuthors(ctx context.Context) ([]model.Author, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+authorColumns+` FROM authors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

type UpdateAuthorParams struct {
	ID        int64
	Name      string
	Email     string
	Bio       string
	AvatarURL string
	UpdatedAt time.Time
}

func (q *Queries) UpdateAuthor(ctx context.Context, arg UpdateAuthorParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE authors SET name = ?, email = ?, bio = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Email, arg.Bio, arg.AvatarURL, arg.UpdatedAt, arg.ID,
	)
	return err
}

func (q *Queries) DeleteAuthor(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	return err
}

func (q *Queries) AuthorExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM authors WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

func (q *Queries) CountNewsByAuthor(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE author_id = ?`, id).Scan(&count)
	return count, err
}

func (q *Queries) CountAuthors(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM authors`).Scan(&count)
	return count, err
}
