// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"strings"
	"testing"
	"time"
)

func TestSitemapBuilder(t *testing.T) {
	b := NewSitemapBuilder("https://news.example.com")
	b.AddHomepage()
	b.AddArticle(SitemapArticle{
		Slug:      "harbor-expansion-approved",
		UpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	})

	out, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	xml := string(out)

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`,
		`<loc>https://news.example.com</loc>`,
		`<loc>https://news.example.com/news/harbor-expansion-approved</loc>`,
		`<lastmod>2026-02-01T10:00:00Z</lastmod>`,
		`<changefreq>weekly</changefreq>`,
		`<priority>0.8</priority>`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("sitemap missing %s\ngot: %s", want, xml)
		}
	}
}

func TestSitemapSkipsSluglessArticles(t *testing.T) {
	b := NewSitemapBuilder("https://news.example.com")
	b.AddArticles([]SitemapArticle{
		{Slug: "kept"},
		{Slug: ""},
	})

	out, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := strings.Count(string(out), "<url>"); got != 1 {
		t.Errorf("url entries = %d, want 1", got)
	}
}

func TestGenerateSitemap(t *testing.T) {
	out, err := GenerateSitemap("https://news.example.com", []SitemapArticle{
		{Slug: "a"}, {Slug: "b"},
	})
	if err != nil {
		t.Fatalf("GenerateSitemap: %v", err)
	}

	// Homepage plus two articles
	if got := strings.Count(string(out), "<url>"); got != 3 {
		t.Errorf("url entries = %d, want 3", got)
	}
}
