// Package transfer moves newsroom content between installations as a
// versioned JSON document.
package transfer

import "time"

// ExportVersion is the current version of the transfer document format.
const ExportVersion = "1.0"

// ExportData is the complete transfer document. Entities reference each other
// by natural key: authors by email, categories and tags by slug, news by
// canonical slug. Database IDs never appear in the document.
type ExportData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Authors    []ExportAuthor   `json:"authors,omitempty"`
	Categories []ExportCategory `json:"categories,omitempty"`
	Tags       []ExportTag      `json:"tags,omitempty"`
	News       []ExportNews     `json:"news,omitempty"`
}

// ExportAuthor represents an author. Email is the identity used to match
// authors across installations.
type ExportAuthor struct {
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty" validate:"omitempty,url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportCategory represents a category. ParentSlug carries the hierarchy; an
// empty value marks a root category.
type ExportCategory struct {
	Name       string    `json:"name" validate:"required"`
	Slug       string    `json:"slug" validate:"required"`
	ParentSlug string    `json:"parent_slug,omitempty"`
	Position   int64     `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ExportTag represents a tag.
type ExportTag struct {
	Name      string    `json:"name" validate:"required"`
	Slug      string    `json:"slug" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportNews represents a full news aggregate with its child collections.
type ExportNews struct {
	Title        string          `json:"title" validate:"required"`
	Subtitle     string          `json:"subtitle,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Slug         string          `json:"slug" validate:"required"`
	Status       string          `json:"status" validate:"required,oneof=draft published"`
	AuthorEmail  string          `json:"author_email" validate:"required,email"`
	CategorySlug string          `json:"category_slug" validate:"required"`
	Featured     bool            `json:"featured,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Blocks       []ExportBlock   `json:"blocks,omitempty" validate:"dive"`
	Images       []ExportImage   `json:"images,omitempty" validate:"dive"`
	Related      []ExportRelated `json:"related,omitempty" validate:"dive"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ExportBlock represents one content block of a news aggregate.
type ExportBlock struct {
	Type     string `json:"type" validate:"required,oneof=text image quote"`
	Content  string `json:"content,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Position int64  `json:"position"`
}

// ExportImage represents one gallery image of a news aggregate.
type ExportImage struct {
	URL      string `json:"url" validate:"required"`
	Caption  string `json:"caption,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Position int64  `json:"position"`
}

// ExportRelated is a directed link to another news article by slug.
type ExportRelated struct {
	Slug         string `json:"slug" validate:"required"`
	RelationType string `json:"relation_type,omitempty"`
}

// ExportOptions configures what to include in the export.
type ExportOptions struct {
	IncludeAuthors    bool   `json:"include_authors"`
	IncludeCategories bool   `json:"include_categories"`
	IncludeTags       bool   `json:"include_tags"`
	IncludeNews       bool   `json:"include_news"`
	NewsStatus        string `json:"news_status"` // "all", "published", "draft"
}

// DefaultExportOptions returns options that include everything.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		IncludeAuthors:    true,
		IncludeCategories: true,
		IncludeTags:       true,
		IncludeNews:       true,
		NewsStatus:        "all",
	}
}

// ConflictStrategy decides what happens when an imported entity's natural key
// already exists in the target database.
type ConflictStrategy string

const (
	// ConflictSkip leaves the existing entity untouched.
	ConflictSkip ConflictStrategy = "skip"
	// ConflictOverwrite updates the existing entity in place.
	ConflictOverwrite ConflictStrategy = "overwrite"
	// ConflictRename creates a new entity; the slug resolver allocates a
	// suffixed slug beside the existing one. Authors cannot be renamed
	// because email is their identity; they are skipped instead.
	ConflictRename ConflictStrategy = "rename"
)

// ImportOptions configures the import operation.
type ImportOptions struct {
	DryRun           bool             `json:"dry_run"`
	ConflictStrategy ConflictStrategy `json:"conflict_strategy"`
	ImportAuthors    bool             `json:"import_authors"`
	ImportCategories bool             `json:"import_categories"`
	ImportTags       bool             `json:"import_tags"`
	ImportNews       bool             `json:"import_news"`
}

// DefaultImportOptions returns options that import every section and skip
// entities that already exist.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		DryRun:           false,
		ConflictStrategy: ConflictSkip,
		ImportAuthors:    true,
		ImportCategories: true,
		ImportTags:       true,
		ImportNews:       true,
	}
}

// ImportError describes one problem with an imported entity.
type ImportError struct {
	Entity  string `json:"entity"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ImportResult collects per-entity counters and errors from an import run.
type ImportResult struct {
	Success bool           `json:"success"`
	DryRun  bool           `json:"dry_run"`
	Created map[string]int `json:"created"`
	Updated map[string]int `json:"updated"`
	Skipped map[string]int `json:"skipped"`
	Errors  []ImportError  `json:"errors,omitempty"`
}

// NewImportResult creates an empty result.
func NewImportResult(dryRun bool) *ImportResult {
	return &ImportResult{
		Success: true,
		DryRun:  dryRun,
		Created: make(map[string]int),
		Updated: make(map[string]int),
		Skipped: make(map[string]int),
	}
}

// IncrementCreated counts one created entity.
func (r *ImportResult) IncrementCreated(entity string) { r.Created[entity]++ }

// IncrementUpdated counts one updated entity.
func (r *ImportResult) IncrementUpdated(entity string) { r.Updated[entity]++ }

// IncrementSkipped counts one skipped entity.
func (r *ImportResult) IncrementSkipped(entity string) { r.Skipped[entity]++ }

// TotalCreated returns the number of created entities across all sections.
func (r *ImportResult) TotalCreated() int { return sumCounts(r.Created) }

// TotalUpdated returns the number of updated entities across all sections.
func (r *ImportResult) TotalUpdated() int { return sumCounts(r.Updated) }

// TotalSkipped returns the number of skipped entities across all sections.
func (r *ImportResult) TotalSkipped() int { return sumCounts(r.Skipped) }

// AddError records a problem with one entity and marks the run as failed.
func (r *ImportResult) AddError(entity, id, message string) {
	r.Success = false
	r.Errors = append(r.Errors, ImportError{Entity: entity, ID: id, Message: message})
}

func sumCounts(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
