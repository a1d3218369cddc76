// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application.
package model

import (
	"database/sql"
	"time"
)

// News statuses
const (
	NewsStatusDraft     = "draft"
	NewsStatusPublished = "published"
)

// Block types
const (
	BlockTypeText  = "text"
	BlockTypeImage = "image"
	BlockTypeQuote = "quote"
)

// ValidBlockType reports whether t is a recognized block type.
func ValidBlockType(t string) bool {
	switch t {
	case BlockTypeText, BlockTypeImage, BlockTypeQuote:
		return true
	}
	return false
}

// ValidNewsStatus reports whether s is a recognized news status.
func ValidNewsStatus(s string) bool {
	switch s {
	case NewsStatusDraft, NewsStatusPublished:
		return true
	}
	return false
}

// News represents a news article row. Blocks, images, tag links and related
// links are stored in their own tables and loaded alongside when the full
// aggregate is needed.
type News struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Summary     string         `json:"summary"`
	AuthorID    int64          `json:"author_id"`
	CategoryID  int64          `json:"category_id"`
	Status      string         `json:"status"`
	Slug        sql.NullString `json:"-"`
	Featured    bool           `json:"featured"`
	PublishedAt sql.NullTime   `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsPublished returns true if the article is published.
func (n *News) IsPublished() bool {
	return n.Status == NewsStatusPublished
}

// IsDraft returns true if the article is a draft.
func (n *News) IsDraft() bool {
	return n.Status == NewsStatusDraft
}

// IsVisible returns true if the article is published and its publish time,
// when set, is not in the future.
func (n *News) IsVisible(now time.Time) bool {
	if !n.IsPublished() {
		return false
	}
	if n.PublishedAt.Valid && n.PublishedAt.Time.After(now) {
		return false
	}
	return true
}

// Block is an ordered content unit belonging to exactly one news article.
type Block struct {
	ID       int64          `json:"id"`
	NewsID   int64          `json:"news_id"`
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	MediaURL sql.NullString `json:"-"`
	AltText  string         `json:"alt_text"`
	Position int64          `json:"position"`
}

// Image is a gallery entry belonging to exactly one news article. URL points
// into the blob store, not at a blocks media reference.
type Image struct {
	ID       int64  `json:"id"`
	NewsID   int64  `json:"news_id"`
	URL      string `json:"url"`
	Caption  string `json:"caption"`
	AltText  string `json:"alt_text"`
	Position int64  `json:"position"`
}

// RelatedLink is a directed association between two news articles with an
// optional label such as "follow-up" or "background".
type RelatedLink struct {
	NewsID       int64          `json:"news_id"`
	RelatedID    int64          `json:"related_id"`
	RelationType sql.NullString `json:"-"`
}

// Aggregate bundles a news row with all of its child collections. It is the
// unit the synchronizer reads and writes.
type Aggregate struct {
	News    News
	Blocks  []Block
	Images  []Image
	TagIDs  []int64
	Related []RelatedLink
}
