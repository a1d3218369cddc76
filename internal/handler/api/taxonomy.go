package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/service"
)

// CategoryResponse represents a category in API responses. Children is
// populated only by the tree endpoint.
type CategoryResponse struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	ParentID  *int64             `json:"parent_id,omitempty"`
	Position  int64              `json:"position"`
	Children  []CategoryResponse `json:"children,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TagResponse represents a tag in API responses.
type TagResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCategoryRequest represents the request body for creating a category.
type CreateCategoryRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID *int64 `json:"parent_id"`
	Position int64  `json:"position"`
}

// UpdateCategoryRequest represents the request body for updating a category.
// Absent fields stay untouched; parent_id 0 moves the category to the root.
type UpdateCategoryRequest struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	ParentID *int64  `json:"parent_id"`
	Position *int64  `json:"position"`
}

// CreateTagRequest represents the request body for creating a tag.
type CreateTagRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// UpdateTagRequest represents the request body for updating a tag.
type UpdateTagRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

func categoryToResponse(cat model.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:        cat.ID,
		Name:      cat.Name,
		Slug:      cat.Slug,
		Position:  cat.Position,
		CreatedAt: cat.CreatedAt,
		UpdatedAt: cat.UpdatedAt,
	}
	if cat.ParentID.Valid {
		parentID := cat.ParentID.Int64
		resp.ParentID = &parentID
	}
	return resp
}

func categoryTreeToResponse(nodes []service.CategoryNode) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(nodes))
	for _, node := range nodes {
		resp := categoryToResponse(node.Category)
		resp.Children = categoryTreeToResponse(node.Children)
		out = append(out, resp)
	}
	return out
}

func tagToResponse(tag model.Tag) TagResponse {
	return TagResponse{
		ID:        tag.ID,
		Name:      tag.Name,
		Slug:      tag.Slug,
		CreatedAt: tag.CreatedAt,
		UpdatedAt: tag.UpdatedAt,
	}
}

// ListCategories handles GET /api/v1/categories (flat, ordered by position).
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]CategoryResponse, 0, len(cats))
	for _, cat := range cats {
		resp = append(resp, categoryToResponse(cat))
	}

	WriteSuccess(w, resp, &Meta{Total: int64(len(cats))})
}

// CategoryTree handles GET /api/v1/categories/tree. Roots come first,
// each carrying its children recursively.
func (h *Handler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categories.Tree(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteSuccess(w, categoryTreeToResponse(tree), nil)
}

// GetCategory handles GET /api/v1/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, ok := fetchEntityByID(h, w, r, "category", func(id int64) (model.Category, error) {
		return h.categories.Get(r.Context(), id)
	})
	if !ok {
		return
	}

	WriteSuccess(w, categoryToResponse(cat), nil)
}

// CreateCategory handles POST /api/v1/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cat, err := h.categories.Create(r.Context(), service.CategoryInput{
		Name:     req.Name,
		Slug:     req.Slug,
		ParentID: req.ParentID,
		Position: req.Position,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteCreated(w, categoryToResponse(cat))
}

// UpdateCategory handles PUT /api/v1/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "category")
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	in := service.UpdateCategoryInput{
		Name:     req.Name,
		Slug:     req.Slug,
		Position: req.Position,
	}
	if req.ParentID != nil {
		if *req.ParentID == 0 {
			in.ParentID = &sql.NullInt64{} // Move to root
		} else {
			in.ParentID = &sql.NullInt64{Int64: *req.ParentID, Valid: true}
		}
	}

	cat, err := h.categories.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteSuccess(w, categoryToResponse(cat), nil)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}. Deletion is
// refused while the category still has children or referencing news.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "category")
	if !ok {
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/v1/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]TagResponse, 0, len(tags))
	for _, tag := range tags {
		resp = append(resp, tagToResponse(tag))
	}

	WriteSuccess(w, resp, &Meta{Total: int64(len(tags))})
}

// GetTag handles GET /api/v1/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := fetchEntityByID(h, w, r, "tag", func(id int64) (model.Tag, error) {
		return h.tags.Get(r.Context(), id)
	})
	if !ok {
		return
	}

	WriteSuccess(w, tagToResponse(tag), nil)
}

// CreateTag handles POST /api/v1/tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	tag, err := h.tags.Create(r.Context(), service.TagInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteCreated(w, tagToResponse(tag))
}

// UpdateTag handles PUT /api/v1/tags/{id}.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "tag")
	if !ok {
		return
	}

	var req UpdateTagRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	tag, err := h.tags.Update(r.Context(), id, service.UpdateTagInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteSuccess(w, tagToResponse(tag), nil)
}

// DeleteTag handles DELETE /api/v1/tags/{id}. Join rows for tagged news
// are removed by the ON DELETE CASCADE on news_tags.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "tag")
	if !ok {
		return
	}

	if err := h.tags.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
