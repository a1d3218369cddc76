// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import "context"

// Slug checker adapters. Each satisfies the resolver's Checker interface for
// one slug column, so the same bounded suffix search serves news, tags and
// categories.

type NewsSlugChecker struct{ q *Queries }

// NewsSlugs returns a checker over news.canonical_slug.
func NewsSlugs(q *Queries) NewsSlugChecker { return NewsSlugChecker{q: q} }

func (c NewsSlugChecker) Exists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if excludeID > 0 {
		return c.q.NewsSlugExistsExcluding(ctx, slug, excludeID)
	}
	return c.q.NewsSlugExists(ctx, slug)
}

type TagSlugChecker struct{ q *Queries }

// TagSlugs returns a checker over tags.slug.
func TagSlugs(q *Queries) TagSlugChecker { return TagSlugChecker{q: q} }

func (c TagSlugChecker) Exists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if excludeID > 0 {
		return c.q.TagSlugExistsExcluding(ctx, slug, excludeID)
	}
	return c.q.TagSlugExists(ctx, slug)
}

type CategorySlugChecker struct{ q *Queries }

// CategorySlugs returns a checker over categories.slug.
func CategorySlugs(q *Queries) CategorySlugChecker { return CategorySlugChecker{q: q} }

func (c CategorySlugChecker) Exists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if excludeID > 0 {
		return c.q.CategorySlugExistsExcluding(ctx, slug, excludeID)
	}
	return c.q.CategorySlugExists(ctx, slug)
}
