// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides in-memory caching for derived artifacts that are
// expensive to rebuild on every request.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olegiv/newsdesk-go/internal/seo"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// SitemapCache provides cached sitemap XML generation.
// The sitemap is regenerated when invalidated or when TTL expires.
type SitemapCache struct {
	queries *store.Queries
	ttl     time.Duration

	mu       sync.RWMutex
	xml      []byte
	cachedAt time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats holds sitemap cache counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Cached bool  `json:"cached"`
}

// NewSitemapCache creates a new sitemap cache.
// TTL defaults to 1 hour.
func NewSitemapCache(queries *store.Queries, ttl time.Duration) *SitemapCache {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &SitemapCache{
		queries: queries,
		ttl:     ttl,
	}
}

// Get returns the cached sitemap XML, generating it if needed.
func (c *SitemapCache) Get(ctx context.Context, siteURL string) ([]byte, error) {
	c.mu.RLock()
	if c.xml != nil && time.Since(c.cachedAt) < c.ttl {
		xml := c.xml
		c.mu.RUnlock()
		c.hits.Add(1)
		return xml, nil
	}
	c.mu.RUnlock()

	return c.regenerate(ctx, siteURL)
}

// regenerate generates the sitemap and caches it.
func (c *SitemapCache) regenerate(ctx context.Context, siteURL string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.xml != nil && time.Since(c.cachedAt) < c.ttl {
		c.hits.Add(1)
		return c.xml, nil
	}

	c.misses.Add(1)

	builder := seo.NewSitemapBuilder(siteURL)
	builder.AddHomepage()

	entries, err := c.queries.ListNewsForSitemap(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		builder.AddArticle(seo.SitemapArticle{
			Slug:      e.Slug,
			UpdatedAt: e.UpdatedAt,
		})
	}

	xml, err := builder.Build()
	if err != nil {
		return nil, err
	}

	c.xml = xml
	c.cachedAt = time.Now()

	return xml, nil
}

// Invalidate clears the cached sitemap, forcing regeneration on next request.
func (c *SitemapCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.xml = nil
	c.cachedAt = time.Time{}
}

// IsCached returns true if the sitemap is currently cached.
func (c *SitemapCache) IsCached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.xml != nil && time.Since(c.cachedAt) < c.ttl
}

// Size returns the size of the cached sitemap in bytes.
func (c *SitemapCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.xml)
}

// Stats returns current cache counters.
func (c *SitemapCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Cached: c.IsCached(),
	}
}
