// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/middleware"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/seo"
	"github.com/olegiv/newsdesk-go/internal/service"
)

// PreviewHandler serves the public server-rendered article pages. The pages
// exist for social-media crawlers and slug-based sharing; the JSON API is the
// primary read path.
type PreviewHandler struct {
	news    *service.NewsService
	authors *service.AuthorService
	site    *seo.SiteConfig
	logger  *slog.Logger
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(news *service.NewsService, authors *service.AuthorService, site *seo.SiteConfig, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{
		news:    news,
		authors: authors,
		site:    site,
		logger:  logger,
	}
}

// previewBlock is one renderable content unit of the article body.
type previewBlock struct {
	Type     string
	HTML     template.HTML
	MediaURL string
	AltText  string
	Caption  string
}

// previewData holds everything the article template needs.
type previewData struct {
	Meta     *seo.Meta
	Schema   template.JS
	Article  *seo.ArticleData
	Blocks   []previewBlock
	SiteName string
}

// Preview handles GET /news/{slug} - renders the article as an HTML document.
// Unpublished articles are served only to requests authenticated with a key
// holding news:read; everyone else gets a 404 so drafts stay unguessable.
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	agg, err := h.news.GetBySlug(r.Context(), slug)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("preview lookup failed", "slug", slug, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !agg.News.IsVisible(time.Now()) {
		key := middleware.GetAPIKey(r)
		if key == nil || !key.HasPermission(model.PermissionNewsRead) {
			http.NotFound(w, r)
			return
		}
	}

	if h.writeConditionalHeaders(w, r, &agg.News) {
		return
	}

	authorName := ""
	if author, err := h.authors.Get(r.Context(), agg.News.AuthorID); err == nil {
		authorName = author.Name
	}

	article := seo.FromAggregate(&agg, authorName)
	data := previewData{
		Meta:     seo.BuildMeta(article, h.site),
		Schema:   seo.BuildNewsArticleSchema(article, h.site),
		Article:  article,
		SiteName: h.site.SiteName,
	}

	blocks, err := renderBlocks(agg.Blocks)
	if err != nil {
		h.logger.Error("preview render failed", "slug", slug, "error", err)
		http.Error(w, "Failed to render article", http.StatusInternalServerError)
		return
	}
	data.Blocks = blocks

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := previewTmpl.Execute(w, data); err != nil {
		h.logger.Error("preview template failed", "slug", slug, "error", err)
	}
}

// writeConditionalHeaders sets ETag and Last-Modified from the article row and
// answers 304 when the client cache is still fresh. Returns true when the
// response has been written.
func (h *PreviewHandler) writeConditionalHeaders(w http.ResponseWriter, r *http.Request, news *model.News) bool {
	etag := fmt.Sprintf(`"news-%d-%d"`, news.ID, news.UpdatedAt.Unix())
	lastModified := news.UpdatedAt.UTC()

	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))

	if match := r.Header.Get("If-None-Match"); match != "" {
		if match == etag || match == "*" {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
		return false
	}

	if since := r.Header.Get("If-Modified-Since"); since != "" {
		if t, err := http.ParseTime(since); err == nil {
			// HTTP dates carry second precision
			if !lastModified.Truncate(time.Second).After(t) {
				w.WriteHeader(http.StatusNotModified)
				return true
			}
		}
	}

	return false
}

// renderBlocks converts stored blocks into renderable units. Text and quote
// content is markdown; goldmark escapes any embedded raw HTML on top of the
// sanitization applied at write time.
func renderBlocks(blocks []model.Block) ([]previewBlock, error) {
	out := make([]previewBlock, 0, len(blocks))
	for _, b := range blocks {
		pb := previewBlock{Type: b.Type}
		switch b.Type {
		case model.BlockTypeImage:
			pb.MediaURL = b.MediaURL.String
			pb.AltText = b.AltText
			pb.Caption = b.Content
		default:
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(b.Content), &buf); err != nil {
				return nil, fmt.Errorf("convert block %d: %w", b.ID, err)
			}
			pb.HTML = template.HTML(buf.String()) //nolint:gosec // sanitized at write time, markdown-rendered here
		}
		out = append(out, pb)
	}
	return out, nil
}

var previewTmpl = template.Must(template.New("preview").Parse(previewPage))

const previewPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Meta.Title}}</title>
<meta name="description" content="{{.Meta.Description}}">
<meta name="robots" content="{{.Meta.Robots}}">
<link rel="canonical" href="{{.Meta.Canonical}}">
<meta property="og:type" content="{{.Meta.OGType}}">
<meta property="og:title" content="{{.Meta.OGTitle}}">
<meta property="og:description" content="{{.Meta.OGDescription}}">
<meta property="og:site_name" content="{{.Meta.OGSiteName}}">
<meta property="og:url" content="{{.Meta.OGURL}}">
{{if .Meta.OGImage}}<meta property="og:image" content="{{.Meta.OGImage}}">
{{end}}<meta name="twitter:card" content="{{.Meta.TwitterCard}}">
{{if .Meta.TwitterSite}}<meta name="twitter:site" content="{{.Meta.TwitterSite}}">
{{end}}{{if .Schema}}<script type="application/ld+json">{{.Schema}}</script>
{{end}}</head>
<body>
<article>
<header>
<h1>{{.Article.Title}}</h1>
{{if .Article.Subtitle}}<p class="subtitle">{{.Article.Subtitle}}</p>
{{end}}{{if .Article.AuthorName}}<p class="byline">By {{.Article.AuthorName}}</p>
{{end}}{{if .Article.PublishedAt}}<time datetime="{{.Article.PublishedAt.Format "2006-01-02T15:04:05Z07:00"}}">{{.Article.PublishedAt.Format "January 2, 2006"}}</time>
{{end}}</header>
{{range .Blocks}}{{if eq .Type "image"}}<figure>
<img src="{{.MediaURL}}" alt="{{.AltText}}">
{{if .Caption}}<figcaption>{{.Caption}}</figcaption>{{end}}
</figure>
{{else if eq .Type "quote"}}<blockquote>
{{.HTML}}</blockquote>
{{else}}{{.HTML}}{{end}}{{end}}<footer>
<p>{{.SiteName}}</p>
</footer>
</article>
</body>
</html>
`
