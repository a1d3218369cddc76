// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds meta tags, structured data and crawler files for the
// public article preview pages.
package seo

import (
	"encoding/json"
	"html/template"
	"strings"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
)

// Meta holds the head-tag data for a rendered page.
type Meta struct {
	Title         string
	Description   string
	Canonical     string
	OGTitle       string
	OGDescription string
	OGImage       string // absolute URL
	OGType        string // website, article
	OGSiteName    string
	OGURL         string
	Robots        string
	TwitterCard   string
	TwitterSite   string
}

// ArticleData is the flattened slice of a news aggregate that the meta
// and schema builders consume.
type ArticleData struct {
	Title       string
	Subtitle    string
	Summary     string
	Slug        string
	AuthorName  string
	LeadImage   string
	BodyText    string
	Published   bool
	PublishedAt *time.Time
	UpdatedAt   time.Time
}

// SiteConfig contains site-wide settings for SEO.
type SiteConfig struct {
	SiteName        string
	SiteURL         string
	SiteDescription string
	DefaultOGImage  string
	TwitterHandle   string
}

// FromAggregate flattens a news aggregate for the builders. The lead
// image is the first gallery image, falling back to the first image
// block; body text concatenates text and quote blocks in order.
func FromAggregate(agg *model.Aggregate, authorName string) *ArticleData {
	a := &ArticleData{
		Title:      agg.News.Title,
		Subtitle:   agg.News.Subtitle,
		Summary:    agg.News.Summary,
		AuthorName: authorName,
		Published:  agg.News.IsPublished(),
		UpdatedAt:  agg.News.UpdatedAt,
	}
	if agg.News.Slug.Valid {
		a.Slug = agg.News.Slug.String
	}
	if agg.News.PublishedAt.Valid {
		t := agg.News.PublishedAt.Time
		a.PublishedAt = &t
	}

	for _, img := range agg.Images {
		if img.URL != "" {
			a.LeadImage = img.URL
			break
		}
	}
	if a.LeadImage == "" {
		for _, b := range agg.Blocks {
			if b.Type == model.BlockTypeImage && b.MediaURL.Valid && b.MediaURL.String != "" {
				a.LeadImage = b.MediaURL.String
				break
			}
		}
	}

	var parts []string
	for _, b := range agg.Blocks {
		if b.Type == model.BlockTypeText || b.Type == model.BlockTypeQuote {
			parts = append(parts, b.Content)
		}
	}
	a.BodyText = strings.Join(parts, " ")

	return a
}

// BuildMeta creates a Meta struct from article and site data with per-field
// fallbacks. A nil article yields the site defaults.
func BuildMeta(article *ArticleData, site *SiteConfig) *Meta {
	meta := &Meta{
		OGType:      "website",
		TwitterCard: "summary_large_image",
		OGSiteName:  site.SiteName,
		TwitterSite: site.TwitterHandle,
	}

	if article == nil {
		meta.Title = site.SiteName
		meta.OGTitle = site.SiteName
		meta.Description = site.SiteDescription
		meta.OGDescription = site.SiteDescription
		meta.Canonical = site.SiteURL
		meta.OGURL = site.SiteURL
		meta.Robots = "index,follow"
		if site.DefaultOGImage != "" {
			meta.OGImage = makeAbsoluteURL(site.DefaultOGImage, site.SiteURL)
		}
		return meta
	}

	meta.OGType = "article"
	meta.Title = article.Title
	meta.OGTitle = article.Title

	// Description: summary → subtitle → truncated body text
	switch {
	case article.Summary != "":
		meta.Description = truncateText(stripHTML(article.Summary), 160)
	case article.Subtitle != "":
		meta.Description = truncateText(stripHTML(article.Subtitle), 160)
	default:
		meta.Description = truncateText(stripHTML(article.BodyText), 160)
	}
	meta.OGDescription = meta.Description

	// OG image: lead image → site default
	if article.LeadImage != "" {
		meta.OGImage = makeAbsoluteURL(article.LeadImage, site.SiteURL)
	} else if site.DefaultOGImage != "" {
		meta.OGImage = makeAbsoluteURL(site.DefaultOGImage, site.SiteURL)
	}

	if article.Slug != "" {
		meta.Canonical = site.SiteURL + "/news/" + article.Slug
	}
	meta.OGURL = meta.Canonical

	// Drafts stay out of indexes even when previewed
	if article.Published {
		meta.Robots = "index,follow"
	} else {
		meta.Robots = "noindex,nofollow"
	}

	return meta
}

// NewsArticleSchema represents JSON-LD NewsArticle structured data.
type NewsArticleSchema struct {
	Context          string        `json:"@context"`
	Type             string        `json:"@type"`
	Headline         string        `json:"headline"`
	Description      string        `json:"description,omitempty"`
	Image            string        `json:"image,omitempty"`
	DatePublished    string        `json:"datePublished,omitempty"`
	DateModified     string        `json:"dateModified,omitempty"`
	Author           *PersonSchema `json:"author,omitempty"`
	Publisher        *OrgSchema    `json:"publisher,omitempty"`
	MainEntityOfPage string        `json:"mainEntityOfPage,omitempty"`
}

// PersonSchema represents JSON-LD Person structured data.
type PersonSchema struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// OrgSchema represents JSON-LD Organization structured data.
type OrgSchema struct {
	Type string       `json:"@type"`
	Name string       `json:"name"`
	Logo *ImageSchema `json:"logo,omitempty"`
}

// ImageSchema represents JSON-LD ImageObject structured data.
type ImageSchema struct {
	Type string `json:"@type"`
	URL  string `json:"url"`
}

// BuildNewsArticleSchema creates JSON-LD NewsArticle structured data.
func BuildNewsArticleSchema(article *ArticleData, site *SiteConfig) template.JS {
	if article == nil {
		return ""
	}

	schema := NewsArticleSchema{
		Context:  "https://schema.org",
		Type:     "NewsArticle",
		Headline: article.Title,
	}

	if article.Summary != "" {
		schema.Description = truncateText(stripHTML(article.Summary), 160)
	}
	if article.Slug != "" {
		schema.MainEntityOfPage = site.SiteURL + "/news/" + article.Slug
	}
	if article.LeadImage != "" {
		schema.Image = makeAbsoluteURL(article.LeadImage, site.SiteURL)
	}

	if article.PublishedAt != nil {
		schema.DatePublished = article.PublishedAt.Format(time.RFC3339)
	}
	if !article.UpdatedAt.IsZero() {
		schema.DateModified = article.UpdatedAt.Format(time.RFC3339)
	}

	if article.AuthorName != "" {
		schema.Author = &PersonSchema{
			Type: "Person",
			Name: article.AuthorName,
		}
	}

	schema.Publisher = &OrgSchema{
		Type: "Organization",
		Name: site.SiteName,
	}
	if site.DefaultOGImage != "" {
		schema.Publisher.Logo = &ImageSchema{
			Type: "ImageObject",
			URL:  makeAbsoluteURL(site.DefaultOGImage, site.SiteURL),
		}
	}

	return marshalJSONLD(schema)
}

// marshalJSONLD marshals structured data to JSON-LD script tag content.
func marshalJSONLD(v any) template.JS {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return template.JS(data)
}

// stripHTML removes HTML tags from a string.
func stripHTML(html string) string {
	var result strings.Builder
	inTag := false
	for _, r := range html {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			result.WriteRune(' ')
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// truncateText truncates text to maxLen characters at a word boundary.
func truncateText(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}

	truncated := text[:maxLen]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen/2 {
		truncated = truncated[:lastSpace]
	}

	return strings.TrimSpace(truncated) + "..."
}

// makeAbsoluteURL ensures a URL is absolute by prepending the site URL.
func makeAbsoluteURL(url, siteURL string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	siteURL = strings.TrimSuffix(siteURL, "/")
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	return siteURL + url
}
