package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Default editorial records created on first start
const (
	DefaultAuthorName  = "Newsroom"
	DefaultAuthorEmail = "newsroom@example.com"

	DefaultCategoryName = "General"
	DefaultCategorySlug = "general"
)

// Seed creates initial data in the database. Articles need an author and a
// category to reference, so an empty install gets one of each.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)
	now := time.Now()

	count, err := queries.CountAuthors(ctx)
	if err != nil {
		return fmt.Errorf("counting authors: %w", err)
	}
	if count == 0 {
		author, err := queries.CreateAuthor(ctx, CreateAuthorParams{
			Name:      DefaultAuthorName,
			Email:     DefaultAuthorEmail,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("creating default author: %w", err)
		}
		slog.Info("created default author", "id", author.ID, "email", author.Email)
	}

	_, err = queries.GetCategoryBySlug(ctx, DefaultCategorySlug)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking for default category: %w", err)
	}

	category, err := queries.CreateCategory(ctx, CreateCategoryParams{
		Name:      DefaultCategoryName,
		Slug:      DefaultCategorySlug,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("creating default category: %w", err)
	}
	slog.Info("created default category", "id", category.ID, "slug", category.Slug)

	return nil
}
