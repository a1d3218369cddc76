// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/newsdesk-go/internal/cache"
	"github.com/olegiv/newsdesk-go/internal/config"
	"github.com/olegiv/newsdesk-go/internal/seo"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// CrawlerHandler serves the crawler-facing plain files: robots.txt,
// sitemap.xml and security.txt.
type CrawlerHandler struct {
	sitemap *cache.SitemapCache
	cfg     *config.Config
	logger  *slog.Logger
}

// NewCrawlerHandler creates a new crawler file handler.
func NewCrawlerHandler(db *sql.DB, cfg *config.Config, logger *slog.Logger) *CrawlerHandler {
	return &CrawlerHandler{
		sitemap: cache.NewSitemapCache(store.New(db), time.Hour),
		cfg:     cfg,
		logger:  logger,
	}
}

// Robots handles GET /robots.txt.
// Non-production deployments disallow everything so staging copies stay out
// of search indexes.
func (h *CrawlerHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	disallowAll := h.cfg.Env != "production"

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seo.GenerateRobots(h.cfg.BaseURL, disallowAll)))
}

// Sitemap handles GET /sitemap.xml.
func (h *CrawlerHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	xml, err := h.sitemap.Get(r.Context(), h.cfg.BaseURL)
	if err != nil {
		h.logger.Error("sitemap generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(xml)
}

// SecurityTxt handles GET /.well-known/security.txt.
// Responds 404 unless a security contact is configured.
func (h *CrawlerHandler) SecurityTxt(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SecurityContact == "" {
		http.NotFound(w, r)
		return
	}

	canonical := h.cfg.BaseURL + "/.well-known/security.txt"
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seo.GenerateSecurityTxt(h.cfg.SecurityContact, canonical)))
}

// InvalidateSitemap clears the cached sitemap so the next request includes
// recent publications.
func (h *CrawlerHandler) InvalidateSitemap() {
	h.sitemap.Invalidate()
}
