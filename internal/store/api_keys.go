// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, permissions, last_used_at, expires_at, is_active, created_at, updated_at`

func scanAPIKey(row rowScanner) (model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Permissions,
		&k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

type CreateAPIKeyParams struct {
	Name        string
	KeyHash     string
	KeyPrefix   string
	Permissions string
	ExpiresAt   sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (name, key_hash, key_prefix, permissions, expires_at, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		RETURNING `+apiKeyColumns,
		arg.Name, arg.KeyHash, arg.KeyPrefix, arg.Permissions, arg.ExpiresAt,
		arg.CreatedAt, arg.UpdatedAt,
	)
	return scanAPIKey(row)
}

func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash)
	return scanAPIKey(row)
}

func (q *Queries) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, k)
	}
	return items, rows.Err()
}

type UpdateAPIKeyLastUsedParams struct {
	ID         int64
	LastUsedAt sql.NullTime
}

func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, arg.LastUsedAt, arg.ID)
	return err
}
