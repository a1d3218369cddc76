// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk-go/internal/handler"
	"github.com/olegiv/newsdesk-go/internal/middleware"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// NewsResponse represents a news article in API responses. Child collections
// are present on single-article reads and omitted from list responses.
type NewsResponse struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Subtitle    string            `json:"subtitle,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	AuthorID    int64             `json:"author_id"`
	CategoryID  int64             `json:"category_id"`
	Status      string            `json:"status"`
	Slug        string            `json:"slug,omitempty"`
	Featured    bool              `json:"featured"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Blocks      []BlockResponse   `json:"blocks,omitempty"`
	Images      []ImageResponse   `json:"images,omitempty"`
	TagIDs      []int64           `json:"tag_ids,omitempty"`
	Related     []RelatedResponse `json:"related,omitempty"`
}

// BlockResponse represents a content block in API responses.
type BlockResponse struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Position int64  `json:"position"`
}

// ImageResponse represents a gallery image in API responses.
type ImageResponse struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Position int64  `json:"position"`
}

// RelatedResponse represents a related-article link in API responses.
type RelatedResponse struct {
	RelatedID    int64  `json:"related_id"`
	RelationType string `json:"relation_type,omitempty"`
}

// BlockRequest is a content block in create/update requests.
type BlockRequest struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Position *int64 `json:"position,omitempty"`
}

// ImageRequest is a gallery image in create/update requests.
type ImageRequest struct {
	URL      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Position *int64 `json:"position,omitempty"`
}

// RelatedRequest is a related-article link in create/update requests.
type RelatedRequest struct {
	RelatedID    int64  `json:"related_id"`
	RelationType string `json:"relation_type,omitempty"`
}

// CreateNewsRequest represents the request body for creating a news article.
type CreateNewsRequest struct {
	Title       string           `json:"title"`
	Subtitle    string           `json:"subtitle,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	AuthorID    int64            `json:"author_id"`
	CategoryID  int64            `json:"category_id"`
	Status      string           `json:"status,omitempty"`
	Slug        string           `json:"slug,omitempty"`
	Featured    bool             `json:"featured,omitempty"`
	PublishedAt *string          `json:"published_at,omitempty"`
	Blocks      []BlockRequest   `json:"blocks,omitempty"`
	Images      []ImageRequest   `json:"images,omitempty"`
	TagIDs      []int64          `json:"tag_ids,omitempty"`
	Related     []RelatedRequest `json:"related,omitempty"`
}

// UpdateNewsRequest represents the request body for updating a news article.
// Absent fields stay untouched; a supplied collection, even empty, replaces
// the stored one.
type UpdateNewsRequest struct {
	Title       *string           `json:"title,omitempty"`
	Subtitle    *string           `json:"subtitle,omitempty"`
	Summary     *string           `json:"summary,omitempty"`
	AuthorID    *int64            `json:"author_id,omitempty"`
	CategoryID  *int64            `json:"category_id,omitempty"`
	Status      *string           `json:"status,omitempty"`
	Slug        *string           `json:"slug,omitempty"`
	Featured    *bool             `json:"featured,omitempty"`
	PublishedAt *string           `json:"published_at,omitempty"`
	Blocks      *[]BlockRequest   `json:"blocks,omitempty"`
	Images      *[]ImageRequest   `json:"images,omitempty"`
	TagIDs      *[]int64          `json:"tag_ids,omitempty"`
	Related     *[]RelatedRequest `json:"related,omitempty"`
}

// newsToResponse converts a model.News to NewsResponse without children.
func newsToResponse(n model.News) NewsResponse {
	resp := NewsResponse{
		ID:         n.ID,
		Title:      n.Title,
		Subtitle:   n.Subtitle,
		Summary:    n.Summary,
		AuthorID:   n.AuthorID,
		CategoryID: n.CategoryID,
		Status:     n.Status,
		Featured:   n.Featured,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
	if n.Slug.Valid {
		resp.Slug = n.Slug.String
	}
	if n.PublishedAt.Valid {
		resp.PublishedAt = &n.PublishedAt.Time
	}
	return resp
}

// aggregateToResponse converts a model.Aggregate to a full NewsResponse.
func aggregateToResponse(agg model.Aggregate) NewsResponse {
	resp := newsToResponse(agg.News)

	resp.Blocks = make([]BlockResponse, 0, len(agg.Blocks))
	for _, b := range agg.Blocks {
		br := BlockResponse{
			ID:       b.ID,
			Type:     b.Type,
			Content:  b.Content,
			AltText:  b.AltText,
			Position: b.Position,
		}
		if b.MediaURL.Valid {
			br.MediaURL = b.MediaURL.String
		}
		resp.Blocks = append(resp.Blocks, br)
	}

	resp.Images = make([]ImageResponse, 0, len(agg.Images))
	for _, img := range agg.Images {
		resp.Images = append(resp.Images, ImageResponse{
			ID:       img.ID,
			URL:      img.URL,
			Caption:  img.Caption,
			AltText:  img.AltText,
			Position: img.Position,
		})
	}

	resp.TagIDs = agg.TagIDs

	resp.Related = make([]RelatedResponse, 0, len(agg.Related))
	for _, rel := range agg.Related {
		rr := RelatedResponse{RelatedID: rel.RelatedID}
		if rel.RelationType.Valid {
			rr.RelationType = rel.RelationType.String
		}
		resp.Related = append(resp.Related, rr)
	}

	return resp
}

// canReadUnpublished reports whether the request may see non-published news.
func canReadUnpublished(r *http.Request) bool {
	key := middleware.GetAPIKey(r)
	return key != nil && key.HasPermission(model.PermissionNewsRead)
}

// ListNews handles GET /api/v1/news
// Public: returns only published, currently visible articles.
// With news:read: can filter by any status.
func (h *Handler) ListNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	status := q.Get("status")
	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, 20, 100)

	params := store.ListNewsParams{
		FeaturedOnly: q.Get("featured") == "true",
		Limit:        int64(perPage),
		Offset:       int64((page - 1) * perPage),
	}

	if s := q.Get("category"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteBadRequest(w, "Invalid category ID", nil)
			return
		}
		params.CategoryID = id
	}
	if s := q.Get("author"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteBadRequest(w, "Invalid author ID", nil)
			return
		}
		params.AuthorID = id
	}
	if s := q.Get("tag"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			WriteBadRequest(w, "Invalid tag ID", nil)
			return
		}
		params.TagID = id
	}

	if canReadUnpublished(r) {
		if status != "" && !model.ValidNewsStatus(status) {
			WriteValidationError(w, map[string]string{"status": "Status must be 'draft' or 'published'"})
			return
		}
		params.Status = status
	} else {
		if status != "" && status != model.NewsStatusPublished {
			WriteForbidden(w, "Authentication required to view non-published news")
			return
		}
		params.Status = model.NewsStatusPublished
		params.PublishedBefore = sql.NullTime{Time: time.Now(), Valid: true}
	}

	items, total, err := h.news.List(ctx, params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses := make([]NewsResponse, 0, len(items))
	for _, n := range items {
		responses = append(responses, newsToResponse(n))
	}

	WriteSuccess(w, responses, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   totalPages(total, perPage),
	})
}

// totalPages rounds total/perPage up.
func totalPages(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	return pages
}

// GetNews handles GET /api/v1/news/{id}
// Public: returns only published, currently visible articles.
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	agg, ok := fetchEntityByID(h, w, r, "news", func(id int64) (model.Aggregate, error) {
		return h.news.Get(r.Context(), id)
	})
	if !ok {
		return
	}

	if !agg.News.IsVisible(time.Now()) && !canReadUnpublished(r) {
		WriteNotFound(w, "News not found")
		return
	}

	WriteSuccess(w, aggregateToResponse(agg), nil)
}

// GetNewsBySlug handles GET /api/v1/news/slug/{slug}
// Public: returns only published, currently visible articles.
func (h *Handler) GetNewsBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		WriteBadRequest(w, "Slug is required", nil)
		return
	}

	agg, err := h.news.GetBySlug(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if !agg.News.IsVisible(time.Now()) && !canReadUnpublished(r) {
		WriteNotFound(w, "News not found")
		return
	}

	WriteSuccess(w, aggregateToResponse(agg), nil)
}

// CreateNews handles POST /api/v1/news
// Requires news:write permission.
func (h *Handler) CreateNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateNewsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	in := service.CreateNewsInput{
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		Summary:    req.Summary,
		AuthorID:   req.AuthorID,
		CategoryID: req.CategoryID,
		Status:     req.Status,
		Slug:       req.Slug,
		Featured:   req.Featured,
		Blocks:     blockInputs(req.Blocks),
		Images:     imageInputs(req.Images),
		TagIDs:     req.TagIDs,
		Related:    relatedInputs(req.Related),
	}

	if req.PublishedAt != nil && *req.PublishedAt != "" {
		t, err := time.Parse(time.RFC3339, *req.PublishedAt)
		if err != nil {
			WriteValidationError(w, map[string]string{"published_at": "Invalid date format. Use RFC3339 (e.g., 2024-01-01T00:00:00Z)"})
			return
		}
		in.PublishedAt = &t
	}

	id, err := h.news.Create(ctx, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	agg, err := h.news.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteCreated(w, aggregateToResponse(agg))
}

// UpdateNews handles PUT /api/v1/news/{id}
// Requires news:write permission. Omitted fields and collections stay as they
// are; a supplied collection, even empty, replaces the stored one.
func (h *Handler) UpdateNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.requireEntityByID(w, r, "news")
	if !ok {
		return
	}

	var req UpdateNewsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	in := service.UpdateNewsInput{
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		Summary:    req.Summary,
		AuthorID:   req.AuthorID,
		CategoryID: req.CategoryID,
		Status:     req.Status,
		Slug:       req.Slug,
		Featured:   req.Featured,
		TagIDs:     req.TagIDs,
	}

	if req.PublishedAt != nil {
		if *req.PublishedAt == "" {
			in.PublishedAt = &sql.NullTime{}
		} else {
			t, err := time.Parse(time.RFC3339, *req.PublishedAt)
			if err != nil {
				WriteValidationError(w, map[string]string{"published_at": "Invalid date format. Use RFC3339"})
				return
			}
			in.PublishedAt = &sql.NullTime{Time: t, Valid: true}
		}
	}

	if req.Blocks != nil {
		blocks := blockInputs(*req.Blocks)
		in.Blocks = &blocks
	}
	if req.Images != nil {
		images := imageInputs(*req.Images)
		in.Images = &images
	}
	if req.Related != nil {
		related := relatedInputs(*req.Related)
		in.Related = &related
	}

	if err := h.news.Update(ctx, id, in); err != nil {
		h.writeServiceError(w, err)
		return
	}

	agg, err := h.news.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteSuccess(w, aggregateToResponse(agg), nil)
}

// DeleteNews handles DELETE /api/v1/news/{id}
// Requires news:write permission.
func (h *Handler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "news")
	if !ok {
		return
	}

	if err := h.news.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func blockInputs(blocks []BlockRequest) []service.BlockInput {
	if blocks == nil {
		return nil
	}
	out := make([]service.BlockInput, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, service.BlockInput{
			Type:     b.Type,
			Content:  b.Content,
			MediaURL: b.MediaURL,
			AltText:  b.AltText,
			Position: b.Position,
		})
	}
	return out
}

func imageInputs(images []ImageRequest) []service.ImageInput {
	if images == nil {
		return nil
	}
	out := make([]service.ImageInput, 0, len(images))
	for _, img := range images {
		out = append(out, service.ImageInput{
			URL:      img.URL,
			Caption:  img.Caption,
			AltText:  img.AltText,
			Position: img.Position,
		})
	}
	return out
}

func relatedInputs(related []RelatedRequest) []service.RelatedInput {
	if related == nil {
		return nil
	}
	out := make([]service.RelatedInput, 0, len(related))
	for _, rel := range related {
		out = append(out, service.RelatedInput{
			RelatedID:    rel.RelatedID,
			RelationType: rel.RelationType,
		})
	}
	return out
}
