// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// EventService reads and writes the persisted event log. Most entries
// arrive through the slog handler; Log exists for explicit bookkeeping.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates an EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{queries: store.New(db)}
}

// Log records one event. Metadata marshals to JSON; nil stores "{}".
func (s *EventService) Log(ctx context.Context, level, category, message string, metadata map[string]any) error {
	const op = "service.EventService.Log"

	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return store.MapError(op, err)
	}
	return nil
}

// List returns events newest first plus the unpaged total.
func (s *EventService) List(ctx context.Context, limit, offset int64) ([]model.Event, int64, error) {
	const op = "service.EventService.List"

	items, err := s.queries.ListEvents(ctx, limit, offset)
	if err != nil {
		return nil, 0, store.MapError(op, err)
	}
	total, err := s.queries.CountEvents(ctx)
	if err != nil {
		return nil, 0, store.MapError(op, err)
	}
	return items, total, nil
}
