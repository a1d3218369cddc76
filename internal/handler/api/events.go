package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olegiv/newsdesk-go/internal/handler"
	"github.com/olegiv/newsdesk-go/internal/model"
)

// EventResponse represents an audit log entry in API responses.
type EventResponse struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func eventToResponse(ev model.Event) EventResponse {
	resp := EventResponse{
		ID:        ev.ID,
		Level:     ev.Level,
		Category:  ev.Category,
		Message:   ev.Message,
		CreatedAt: ev.CreatedAt,
	}
	// Metadata is stored as a JSON string; pass it through untouched so
	// clients get an object, not a double-encoded string.
	if ev.Metadata != "" && json.Valid([]byte(ev.Metadata)) {
		resp.Metadata = json.RawMessage(ev.Metadata)
	}
	return resp
}

// ListEvents handles GET /api/v1/events, newest first. Admin only.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, 50, 200)

	events, total, err := h.events.List(r.Context(), int64(perPage), int64((page-1)*perPage))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, eventToResponse(ev))
	}

	WriteSuccess(w, resp, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   totalPages(total, perPage),
	})
}
