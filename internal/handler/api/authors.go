package api

import (
	"net/http"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/service"
)

// AuthorResponse represents an author in API responses.
type AuthorResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAuthorRequest represents the request body for creating an author.
type CreateAuthorRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateAuthorRequest represents the request body for updating an author.
// Absent fields stay untouched.
type UpdateAuthorRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

func authorToResponse(author model.Author) AuthorResponse {
	return AuthorResponse{
		ID:        author.ID,
		Name:      author.Name,
		Email:     author.Email,
		Bio:       author.Bio,
		AvatarURL: author.AvatarURL,
		CreatedAt: author.CreatedAt,
		UpdatedAt: author.UpdatedAt,
	}
}

// ListAuthors handles GET /api/v1/authors.
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.authors.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]AuthorResponse, 0, len(authors))
	for _, author := range authors {
		resp = append(resp, authorToResponse(author))
	}

	WriteSuccess(w, resp, &Meta{Total: int64(len(authors))})
}

// GetAuthor handles GET /api/v1/authors/{id}.
func (h *Handler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	author, ok := fetchEntityByID(h, w, r, "author", func(id int64) (model.Author, error) {
		return h.authors.Get(r.Context(), id)
	})
	if !ok {
		return
	}

	WriteSuccess(w, authorToResponse(author), nil)
}

// CreateAuthor handles POST /api/v1/authors.
func (h *Handler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req CreateAuthorRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	author, err := h.authors.Create(r.Context(), service.AuthorInput{
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteCreated(w, authorToResponse(author))
}

// UpdateAuthor handles PUT /api/v1/authors/{id}.
func (h *Handler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "author")
	if !ok {
		return
	}

	var req UpdateAuthorRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	author, err := h.authors.Update(r.Context(), id, service.UpdateAuthorInput{
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteSuccess(w, authorToResponse(author), nil)
}

// DeleteAuthor handles DELETE /api/v1/authors/{id}. Deletion is refused
// while the author still has news attributed to them.
func (h *Handler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "author")
	if !ok {
		return
	}

	if err := h.authors.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
