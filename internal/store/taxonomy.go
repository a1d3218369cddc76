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

const categoryColumns = `id, name, slug, parent_id, position, created_at, updated_at`

func scanCategory(row rowScanner) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateCategoryParams struct {
	Name      string
	Slug      string
	ParentID  sql.NullInt64
	Position  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (model.Category, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, parent_id, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+categoryColumns,
		arg.Name, arg.Slug, arg.ParentID, arg.Position, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanCategory(row)
}

func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (model.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug)
	return scanCategory(row)
}

func (q *Queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

type UpdateCategoryParams struct {
	ID        int64
	Name      string
	Slug      string
	ParentID  sql.NullInt64
	Position  int64
	UpdatedAt time.Time
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, slug = ?, parent_id = ?, position = ?, updated_at = ?
		WHERE id = ?`,
		arg.Name, arg.Slug, arg.ParentID, arg.Position, arg.UpdatedAt, arg.ID,
	)
	return err
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

func (q *Queries) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = ?`, slug).Scan(&count)
	return count > 0, err
}

func (q *Queries) CategorySlugExistsExcluding(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count > 0, err
}

func (q *Queries) CountCategoryChildren(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE parent_id = ?`, id).Scan(&count)
	return count, err
}

func (q *Queries) CountNewsByCategory(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM news WHERE category_id = ?`, id).Scan(&count)
	return count, err
}

// GetDescendantCategoryIDs returns every category underneath id, any depth.
// Reparent validation uses it to refuse cycles.
func (q *Queries) GetDescendantCategoryIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `
		WITH RECURSIVE descendants(id) AS (
			SELECT id FROM categories WHERE parent_id = ?
			UNION ALL
			SELECT c.id FROM categories c
			JOIN descendants d ON c.parent_id = d.id
		)
		SELECT id FROM descendants`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var did int64
		if err := rows.Scan(&did); err != nil {
			return nil, err
		}
		ids = append(ids, did)
	}
	return ids, rows.Err()
}

func (q *Queries) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

const tagColumns = `id, name, slug, created_at, updated_at`

func scanTag(row rowScanner) (model.Tag, error) {
	var t model.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type CreateTagParams struct {
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateTag(ctx context.Context, arg CreateTagParams) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING `+tagColumns,
		arg.Name, arg.Slug, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanTag(row)
}

func (q *Queries) GetTagByID(ctx context.Context, id int64) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
	return scanTag(row)
}

func (q *Queries) GetTagBySlug(ctx context.Context, slug string) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug)
	return scanTag(row)
}

func (q *Queries) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type UpdateTagParams struct {
	ID        int64
	Name      string
	Slug      string
	UpdatedAt time.Time
}

func (q *Queries) UpdateTag(ctx context.Context, arg UpdateTagParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE tags SET name = ?, slug = ?, updated_at = ? WHERE id = ?`,
		arg.Name, arg.Slug, arg.UpdatedAt, arg.ID,
	)
	return err
}

func (q *Queries) DeleteTag(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	return err
}

func (q *Queries) TagSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE slug = ?`, slug).Scan(&count)
	return count > 0, err
}

func (q *Queries) TagSlugExistsExcluding(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE slug = ? AND id != ?`, slug, excludeID).Scan(&count)
	return count > 0, err
}

// CountTagsByIDs reports how many of ids exist, used to validate tag link
// requests up front.
func (q *Queries) CountTagsByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM tags WHERE id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
