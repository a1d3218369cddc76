package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryNews     = "news"
	EventCategoryTaxonomy = "taxonomy"
	EventCategoryAuthor   = "author"
	EventCategoryMedia    = "media"
	EventCategorySystem   = "system"
)

// Event represents a system event log entry.
type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"` // JSON string
	CreatedAt time.Time `json:"created_at"`
}
