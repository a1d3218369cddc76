// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media implements blob storage for uploaded files: a Store
// interface plus a disk-backed implementation that normalizes images and
// generates resized variants.
package media

import (
	"errors"

	"github.com/olegiv/newsdesk-go/internal/imaging"
)

// Sentinel errors surfaced by Store implementations.
var (
	// ErrEmpty reports a zero-length upload.
	ErrEmpty = errors.New("media: empty file")
	// ErrUnsupportedType reports an upload whose content is not one of the
	// accepted image formats.
	ErrUnsupportedType = errors.New("media: unsupported file type")
)

// SavedFile describes a stored upload.
type SavedFile struct {
	UUID     string
	Filename string
	URL      string
	MimeType string
	Size     int64
	Width    int
	Height   int
	Variants []imaging.Variant
}

// Store is the seam between media handling and physical blob storage.
// Save persists an upload and yields the URL it will be served from;
// Delete removes everything stored behind that URL.
type Store interface {
	Save(data []byte, originalName string) (*SavedFile, error)
	Delete(url string) error
}
