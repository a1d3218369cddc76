// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Supported image variant types
const (
	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
)

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
)

// ImageVariantConfig defines settings for generating image variants.
type ImageVariantConfig struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // true = crop to exact size, false = fit within bounds
}

// ImageVariants defines the default image variant configurations.
var ImageVariants = map[string]ImageVariantConfig{
	VariantThumbnail: {Width: 300, Height: 300, Quality: 80, Crop: true},
	VariantMedium:    {Width: 1200, Height: 900, Quality: 85, Crop: false},
}

// Media represents an uploaded file backing article images and block media.
type Media struct {
	ID           int64         `json:"id"`
	UUID         string        `json:"uuid"`
	Filename     string        `json:"filename"`
	OriginalName string        `json:"original_name"`
	MimeType     string        `json:"mime_type"`
	Size         int64         `json:"size"`
	Width        sql.NullInt64 `json:"-"`
	Height       sql.NullInt64 `json:"-"`
	AltText      string        `json:"alt_text"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsImage returns true for MIME types the variant pipeline can process.
func (m *Media) IsImage() bool {
	switch m.MimeType {
	case MimeTypeJPEG, MimeTypePNG, MimeTypeGIF, MimeTypeWebP:
		return true
	}
	return false
}
