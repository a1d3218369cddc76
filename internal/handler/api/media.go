package api

import (
	"net/http"
	"time"

	"github.com/olegiv/newsdesk-go/internal/handler"
	"github.com/olegiv/newsdesk-go/internal/model"
)

// MediaResponse represents an uploaded file in API responses.
type MediaResponse struct {
	ID           int64     `json:"id"`
	UUID         string    `json:"uuid"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Width        *int64    `json:"width,omitempty"`
	Height       *int64    `json:"height,omitempty"`
	AltText      string    `json:"alt_text,omitempty"`
	URLs         MediaURLs `json:"urls"`
	CreatedAt    time.Time `json:"created_at"`
}

// MediaURLs contains the public paths of a file and its resized variants.
type MediaURLs struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Medium    string `json:"medium,omitempty"`
}

func (h *Handler) mediaToResponse(m model.Media) MediaResponse {
	resp := MediaResponse{
		ID:           m.ID,
		UUID:         m.UUID,
		Filename:     m.Filename,
		OriginalName: m.OriginalName,
		MimeType:     m.MimeType,
		Size:         m.Size,
		AltText:      m.AltText,
		URLs: MediaURLs{
			Original: h.media.URL(m, ""),
		},
		CreatedAt: m.CreatedAt,
	}

	if m.Width.Valid {
		width := m.Width.Int64
		resp.Width = &width
	}
	if m.Height.Valid {
		height := m.Height.Int64
		resp.Height = &height
	}
	if m.IsImage() {
		resp.URLs.Thumbnail = h.media.URL(m, model.VariantThumbnail)
		resp.URLs.Medium = h.media.URL(m, model.VariantMedium)
	}

	return resp
}

// ListMedia handles GET /api/v1/media, newest first.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, 20, 100)

	items, total, err := h.media.List(r.Context(), int64(perPage), int64((page-1)*perPage))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]MediaResponse, 0, len(items))
	for _, m := range items {
		resp = append(resp, h.mediaToResponse(m))
	}

	WriteSuccess(w, resp, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   totalPages(total, perPage),
	})
}

// GetMedia handles GET /api/v1/media/{id}.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	m, ok := fetchEntityByID(h, w, r, "media", func(id int64) (model.Media, error) {
		return h.media.Get(r.Context(), id)
	})
	if !ok {
		return
	}

	WriteSuccess(w, h.mediaToResponse(m), nil)
}

// UploadMedia handles POST /api/v1/media. The body is multipart/form-data
// with the upload in the "file" field and an optional "alt_text" field.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteBadRequest(w, "No file provided. Use the 'file' form field", nil)
		return
	}
	defer func() { _ = file.Close() }()

	altText := r.FormValue("alt_text")

	m, err := h.media.Upload(r.Context(), file, header.Filename, altText)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteCreated(w, h.mediaToResponse(m))
}

// DeleteMedia handles DELETE /api/v1/media/{id}. The catalog row and the
// stored files are both removed.
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireEntityByID(w, r, "media")
	if !ok {
		return
	}

	if err := h.media.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
