// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/media"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/store"
)

// MediaService handles uploaded files: blob storage through a media.Store
// and the catalog rows that article blocks and images reference by URL.
type MediaService struct {
	queries       *store.Queries
	blobs         media.Store
	logger        *slog.Logger
	maxUploadSize int64
}

// NewMediaService creates a MediaService.
func NewMediaService(db *sql.DB, blobs media.Store, logger *slog.Logger, maxUploadSize int64) *MediaService {
	return &MediaService{
		queries:       store.New(db),
		blobs:         blobs,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

// Upload reads the file, stores it through the blob store and records a
// catalog row. The stored files are removed again if the row insert fails.
func (s *MediaService) Upload(ctx context.Context, r io.Reader, originalName, altText string) (model.Media, error) {
	const op = "service.MediaService.Upload"

	// Read one byte past the limit so oversized uploads are detectable
	// without buffering them whole.
	data, err := io.ReadAll(io.LimitReader(r, s.maxUploadSize+1))
	if err != nil {
		return model.Media{}, errx.E(op, errx.Internal, fmt.Errorf("reading upload: %w", err))
	}
	if int64(len(data)) > s.maxUploadSize {
		return model.Media{}, errx.E(op, errx.Invalid, FieldErrors{
			"file": fmt.Sprintf("exceeds the maximum upload size of %d bytes", s.maxUploadSize),
		})
	}

	saved, err := s.blobs.Save(data, originalName)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrEmpty):
			return model.Media{}, errx.E(op, errx.Invalid, FieldErrors{"file": "file is empty"})
		case errors.Is(err, media.ErrUnsupportedType):
			return model.Media{}, errx.E(op, errx.Invalid, FieldErrors{
				"file": "unsupported file type, expected JPEG, PNG, GIF or WebP",
			})
		}
		return model.Media{}, errx.E(op, errx.Internal, err)
	}

	m, err := s.queries.CreateMedia(ctx, store.CreateMediaParams{
		UUID:         saved.UUID,
		Filename:     saved.Filename,
		OriginalName: strings.TrimSpace(originalName),
		MimeType:     saved.MimeType,
		Size:         saved.Size,
		Width:        sql.NullInt64{Int64: int64(saved.Width), Valid: true},
		Height:       sql.NullInt64{Int64: int64(saved.Height), Valid: true},
		AltText:      strings.TrimSpace(altText),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		if delErr := s.blobs.Delete(saved.URL); delErr != nil {
			s.logger.Warn("orphaned media files after failed insert",
				"uuid", saved.UUID, "error", delErr)
		}
		return model.Media{}, store.MapError(op, err)
	}

	s.logger.Info("media uploaded",
		"id", m.ID, "uuid", m.UUID, "mime_type", m.MimeType, "size", m.Size)
	return m, nil
}

func (s *MediaService) Get(ctx context.Context, id int64) (model.Media, error) {
	m, err := s.queries.GetMediaByID(ctx, id)
	if err != nil {
		return model.Media{}, store.MapError("service.MediaService.Get", err)
	}
	return m, nil
}

func (s *MediaService) List(ctx context.Context, limit, offset int64) ([]model.Media, int64, error) {
	const op = "service.MediaService.List"

	items, err := s.queries.ListMedia(ctx, limit, offset)
	if err != nil {
		return nil, 0, store.MapError(op, err)
	}
	total, err := s.queries.CountMedia(ctx)
	if err != nil {
		return nil, 0, store.MapError(op, err)
	}
	return items, total, nil
}

// Delete removes the catalog row first, then the files. File removal
// failures are logged, not surfaced: the row is gone and the leftover
// files are unreachable.
func (s *MediaService) Delete(ctx context.Context, id int64) error {
	const op = "service.MediaService.Delete"

	m, err := s.queries.GetMediaByID(ctx, id)
	if err != nil {
		return store.MapError(op, err)
	}

	if err := s.queries.DeleteMedia(ctx, m.ID); err != nil {
		return store.MapError(op, err)
	}

	if err := s.blobs.Delete(media.URL(m.UUID, m.Filename, "")); err != nil {
		s.logger.Warn("media files not fully removed",
			"id", m.ID, "uuid", m.UUID, "error", err)
	}

	s.logger.Info("media deleted", "id", m.ID, "uuid", m.UUID)
	return nil
}

// URL returns the public path of a stored file, or of one of its variants.
func (s *MediaService) URL(m model.Media, variant string) string {
	return media.URL(m.UUID, m.Filename, variant)
}
