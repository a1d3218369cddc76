package transfer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/service"
)

// Importer loads a transfer document through the regular service layer: the
// same validation, sanitization and slug resolution apply as for API writes.
// Under ConflictRename a colliding slug comes back suffixed by the resolver.
type Importer struct {
	authors    *service.AuthorService
	categories *service.CategoryService
	tags       *service.TagService
	news       *service.NewsService
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewImporter creates an Importer over the given services.
func NewImporter(
	authors *service.AuthorService,
	categories *service.CategoryService,
	tags *service.TagService,
	news *service.NewsService,
	logger *slog.Logger,
) *Importer {
	v := validator.New()
	// Report field names the way they appear in the JSON document.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Importer{
		authors:    authors,
		categories: categories,
		tags:       tags,
		news:       news,
		validate:   v,
		logger:     logger,
	}
}

// Import loads a transfer document. The document is validated first; a
// validation failure returns the collected errors without touching the
// database. With DryRun set the result predicts per-entity outcomes, again
// without writing anything. Entities import in dependency order: authors,
// categories, tags, news. Individual failures are recorded on the result and
// do not abort the rest of the run.
func (i *Importer) Import(ctx context.Context, data *ExportData, opts ImportOptions) (*ImportResult, error) {
	const op = "transfer.Importer.Import"

	result := NewImportResult(opts.DryRun)

	if validationErrors := i.Validate(data); len(validationErrors) > 0 {
		result.Success = false
		result.Errors = append(result.Errors, validationErrors...)
		return result, errx.E(op, errx.Invalid, errors.New("import document failed validation"))
	}

	maps, err := i.buildRefMaps(ctx)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		i.countEntities(ctx, data, opts, maps, result)
		return result, nil
	}

	if opts.ImportAuthors {
		i.importAuthors(ctx, data.Authors, opts, maps, result)
	}
	if opts.ImportCategories {
		i.importCategories(ctx, data.Categories, opts, maps, result)
	}
	if opts.ImportTags {
		i.importTags(ctx, data.Tags, opts, maps, result)
	}
	if opts.ImportNews {
		i.importNews(ctx, data.News, opts, maps, result)
	}

	i.logger.Info("import finished",
		"created", result.TotalCreated(),
		"updated", result.TotalUpdated(),
		"skipped", result.TotalSkipped(),
		"errors", len(result.Errors))
	return result, nil
}

// ImportFromReader decodes a transfer document from r and imports it.
func (i *Importer) ImportFromReader(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	var data ExportData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return i.Import(ctx, &data, opts)
}

// Validate checks the document shape without touching the database: the
// version marker, per-entity field constraints and duplicate natural keys
// within the document itself.
func (i *Importer) Validate(data *ExportData) []ImportError {
	var importErrors []ImportError

	switch {
	case data.Version == "":
		importErrors = append(importErrors, ImportError{
			Entity:  "export",
			Message: "missing version field",
		})
	case data.Version != ExportVersion:
		importErrors = append(importErrors, ImportError{
			Entity:  "export",
			Message: fmt.Sprintf("unsupported document version %q", data.Version),
		})
	}

	seenEmails := make(map[string]bool, len(data.Authors))
	for idx, a := range data.Authors {
		id := keyOrIndex(a.Email, idx)
		importErrors = append(importErrors, i.itemErrors("author", id, a)...)
		email := strings.ToLower(a.Email)
		if email != "" {
			if seenEmails[email] {
				importErrors = append(importErrors, ImportError{
					Entity:  "author",
					ID:      id,
					Message: "duplicate author email in document",
				})
			}
			seenEmails[email] = true
		}
	}

	seenCategories := make(map[string]bool, len(data.Categories))
	for idx, c := range data.Categories {
		id := keyOrIndex(c.Slug, idx)
		importErrors = append(importErrors, i.itemErrors("category", id, c)...)
		if c.Slug != "" {
			if seenCategories[c.Slug] {
				importErrors = append(importErrors, ImportError{
					Entity:  "category",
					ID:      id,
					Message: "duplicate category slug in document",
				})
			}
			seenCategories[c.Slug] = true
		}
	}

	seenTags := make(map[string]bool, len(data.Tags))
	for idx, t := range data.Tags {
		id := keyOrIndex(t.Slug, idx)
		importErrors = append(importErrors, i.itemErrors("tag", id, t)...)
		if t.Slug != "" {
			if seenTags[t.Slug] {
				importErrors = append(importErrors, ImportError{
					Entity:  "tag",
					ID:      id,
					Message: "duplicate tag slug in document",
				})
			}
			seenTags[t.Slug] = true
		}
	}

	seenNews := make(map[string]bool, len(data.News))
	for idx, n := range data.News {
		id := keyOrIndex(n.Slug, idx)
		importErrors = append(importErrors, i.itemErrors("news", id, n)...)
		if n.Slug != "" {
			if seenNews[n.Slug] {
				importErrors = append(importErrors, ImportError{
					Entity:  "news",
					ID:      id,
					Message: "duplicate news slug in document",
				})
			}
			seenNews[n.Slug] = true
		}
	}

	return importErrors
}

// itemErrors runs struct validation on one entity and converts the outcome
// into ImportError records.
func (i *Importer) itemErrors(entity, id string, item any) []ImportError {
	err := i.validate.Struct(item)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ImportError{{Entity: entity, ID: id, Message: err.Error()}}
	}

	out := make([]ImportError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ImportError{Entity: entity, ID: id, Message: fieldErrorMessage(fe)})
	}
	return out
}

// fieldErrorMessage renders one validator error with the JSON field path,
// e.g. "author_email is required" or "blocks[1].type must be one of: text image quote".
func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid email address"
	case "url":
		return field + " is not a valid URL"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func keyOrIndex(key string, idx int) string {
	if key != "" {
		return key
	}
	return strconv.Itoa(idx)
}

// refMaps resolves natural keys to database IDs. The base maps hold the
// target database's current state; the doc maps overlay entries for entities
// the running import has already placed, keyed by the slug the document uses
// even when the resolver renamed it.
type refMaps struct {
	authors       map[string]int64
	categories    map[string]int64
	tags          map[string]int64
	docCategories map[string]int64
	docTags       map[string]int64
	docNews       map[string]int64
}

func (m *refMaps) categoryID(slug string) (int64, bool) {
	if id, ok := m.docCategories[slug]; ok {
		return id, true
	}
	id, ok := m.categories[slug]
	return id, ok
}

func (m *refMaps) tagID(slug string) (int64, bool) {
	if id, ok := m.docTags[slug]; ok {
		return id, true
	}
	id, ok := m.tags[slug]
	return id, ok
}

func (i *Importer) buildRefMaps(ctx context.Context) (*refMaps, error) {
	authors, err := i.authors.List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := i.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := i.tags.List(ctx)
	if err != nil {
		return nil, err
	}

	m := &refMaps{
		authors:       make(map[string]int64, len(authors)),
		categories:    make(map[string]int64, len(categories)),
		tags:          make(map[string]int64, len(tags)),
		docCategories: make(map[string]int64),
		docTags:       make(map[string]int64),
		docNews:       make(map[string]int64),
	}
	for _, a := range authors {
		m.authors[strings.ToLower(a.Email)] = a.ID
	}
	for _, c := range categories {
		m.categories[c.Slug] = c.ID
	}
	for _, t := range tags {
		m.tags[t.Slug] = t.ID
	}
	return m, nil
}

func (i *Importer) importAuthors(ctx context.Context, authors []ExportAuthor, opts ImportOptions, maps *refMaps, result *ImportResult) {
	for _, a := range authors {
		email := strings.ToLower(a.Email)
		if id, ok := maps.authors[email]; ok {
			switch opts.ConflictStrategy {
			case ConflictOverwrite:
				name, bio, avatar := a.Name, a.Bio, a.AvatarURL
				if _, err := i.authors.Update(ctx, id, service.UpdateAuthorInput{
					Name:      &name,
					Bio:       &bio,
					AvatarURL: &avatar,
				}); err != nil {
					result.AddError("author", a.Email, err.Error())
					continue
				}
				result.IncrementUpdated("authors")
			default:
				// Email is the author's identity, so rename degrades to skip.
				result.IncrementSkipped("authors")
			}
			continue
		}

		created, err := i.authors.Create(ctx, service.AuthorInput{
			Name:      a.Name,
			Email:     a.Email,
			Bio:       a.Bio,
			AvatarURL: a.AvatarURL,
		})
		if err != nil {
			result.AddError("author", a.Email, err.Error())
			continue
		}
		maps.authors[created.Email] = created.ID
		result.IncrementCreated("authors")
	}
}

func (i *Importer) importCategories(ctx context.Context, categories []ExportCategory, opts ImportOptions, maps *refMaps, result *ImportResult) {
	// First pass: rows without parent links, so ordering inside the document
	// does not matter. Skipped rows stay untouched entirely, including their
	// current parent.
	pass2 := make(map[string]int64, len(categories))
	for _, c := range categories {
		if id, ok := maps.categories[c.Slug]; ok {
			switch opts.ConflictStrategy {
			case ConflictSkip:
				maps.docCategories[c.Slug] = id
				result.IncrementSkipped("categories")
				continue
			case ConflictOverwrite:
				name, pos := c.Name, c.Position
				if _, err := i.categories.Update(ctx, id, service.UpdateCategoryInput{
					Name:     &name,
					Position: &pos,
				}); err != nil {
					result.AddError("category", c.Slug, err.Error())
					continue
				}
				maps.docCategories[c.Slug] = id
				pass2[c.Slug] = id
				result.IncrementUpdated("categories")
				continue
			case ConflictRename:
				// Create below; the slug resolver picks a free suffix.
			}
		}

		created, err := i.categories.Create(ctx, service.CategoryInput{
			Name:     c.Name,
			Slug:     c.Slug,
			Position: c.Position,
		})
		if err != nil {
			result.AddError("category", c.Slug, err.Error())
			continue
		}
		maps.categories[created.Slug] = created.ID
		maps.docCategories[c.Slug] = created.ID
		pass2[c.Slug] = created.ID
		result.IncrementCreated("categories")
	}

	// Second pass: parent links.
	for _, c := range categories {
		if c.ParentSlug == "" {
			continue
		}
		childID, ok := pass2[c.Slug]
		if !ok {
			continue
		}
		parentID, ok := maps.categoryID(c.ParentSlug)
		if !ok {
			result.AddError("category", c.Slug,
				fmt.Sprintf("parent category %q not found; link dropped", c.ParentSlug))
			continue
		}
		parent := sql.NullInt64{Int64: parentID, Valid: true}
		if _, err := i.categories.Update(ctx, childID, service.UpdateCategoryInput{
			ParentID: &parent,
		}); err != nil {
			result.AddError("category", c.Slug, err.Error())
		}
	}
}

func (i *Importer) importTags(ctx context.Context, tags []ExportTag, opts ImportOptions, maps *refMaps, result *ImportResult) {
	for _, t := range tags {
		if id, ok := maps.tags[t.Slug]; ok {
			switch opts.ConflictStrategy {
			case ConflictSkip:
				maps.docTags[t.Slug] = id
				result.IncrementSkipped("tags")
				continue
			case ConflictOverwrite:
				name := t.Name
				if _, err := i.tags.Update(ctx, id, service.UpdateTagInput{Name: &name}); err != nil {
					result.AddError("tag", t.Slug, err.Error())
					continue
				}
				maps.docTags[t.Slug] = id
				result.IncrementUpdated("tags")
				continue
			case ConflictRename:
				// Create below; the slug resolver picks a free suffix.
			}
		}

		created, err := i.tags.Create(ctx, service.TagInput{Name: t.Name, Slug: t.Slug})
		if err != nil {
			result.AddError("tag", t.Slug, err.Error())
			continue
		}
		maps.tags[created.Slug] = created.ID
		maps.docTags[t.Slug] = created.ID
		result.IncrementCreated("tags")
	}
}

func (i *Importer) importNews(ctx context.Context, news []ExportNews, opts ImportOptions, maps *refMaps, result *ImportResult) {
	// First pass: rows and their owned children. Related links wait until
	// every article in the document has an ID, since they may point forward.
	syncRelated := make(map[string]bool, len(news))
	for _, n := range news {
		existingID, exists, err := i.findNewsBySlug(ctx, n.Slug)
		if err != nil {
			result.AddError("news", n.Slug, err.Error())
			continue
		}

		if exists {
			switch opts.ConflictStrategy {
			case ConflictSkip:
				maps.docNews[n.Slug] = existingID
				result.IncrementSkipped("news")
				continue
			case ConflictOverwrite:
				in, ok := i.buildNewsUpdate(n, maps, result)
				if !ok {
					continue
				}
				if err := i.news.Update(ctx, existingID, in); err != nil {
					result.AddError("news", n.Slug, err.Error())
					continue
				}
				maps.docNews[n.Slug] = existingID
				// The document is authoritative: stale related links on the
				// overwritten article must go even when it lists none.
				syncRelated[n.Slug] = true
				result.IncrementUpdated("news")
				continue
			case ConflictRename:
				// Create below; the slug resolver picks a free suffix.
			}
		}

		in, ok := i.buildNewsCreate(n, maps, result)
		if !ok {
			continue
		}
		id, err := i.news.Create(ctx, in)
		if err != nil {
			result.AddError("news", n.Slug, err.Error())
			continue
		}
		maps.docNews[n.Slug] = id
		syncRelated[n.Slug] = len(n.Related) > 0
		result.IncrementCreated("news")
	}

	// Second pass: related links.
	for _, n := range news {
		if !syncRelated[n.Slug] {
			continue
		}
		id := maps.docNews[n.Slug]
		related := i.resolveRelated(ctx, n, maps, result)
		if err := i.news.Update(ctx, id, service.UpdateNewsInput{Related: &related}); err != nil {
			result.AddError("news", n.Slug, err.Error())
		}
	}
}

// buildNewsCreate resolves the document's natural-key references into a
// service input. A missing author or category fails the article; a missing
// tag is recorded and dropped.
func (i *Importer) buildNewsCreate(n ExportNews, maps *refMaps, result *ImportResult) (service.CreateNewsInput, bool) {
	authorID, categoryID, ok := i.resolveNewsRefs(n, maps, result)
	if !ok {
		return service.CreateNewsInput{}, false
	}

	return service.CreateNewsInput{
		Title:       n.Title,
		Subtitle:    n.Subtitle,
		Summary:     n.Summary,
		AuthorID:    authorID,
		CategoryID:  categoryID,
		Status:      n.Status,
		Slug:        n.Slug,
		Featured:    n.Featured,
		PublishedAt: n.PublishedAt,
		Blocks:      blockInputs(n.Blocks),
		Images:      imageInputs(n.Images),
		TagIDs:      i.resolveTags(n, maps, result),
	}, true
}

// buildNewsUpdate is the overwrite counterpart of buildNewsCreate: every
// field is supplied so the stored aggregate ends up mirroring the document.
// The slug stays untouched because it is the match key, and related links are
// synchronized in a second pass.
func (i *Importer) buildNewsUpdate(n ExportNews, maps *refMaps, result *ImportResult) (service.UpdateNewsInput, bool) {
	authorID, categoryID, ok := i.resolveNewsRefs(n, maps, result)
	if !ok {
		return service.UpdateNewsInput{}, false
	}

	title, subtitle, summary := n.Title, n.Subtitle, n.Summary
	status, featured := n.Status, n.Featured
	blocks := blockInputs(n.Blocks)
	images := imageInputs(n.Images)
	tagIDs := i.resolveTags(n, maps, result)
	published := sql.NullTime{}
	if n.PublishedAt != nil {
		published = sql.NullTime{Time: *n.PublishedAt, Valid: true}
	}

	return service.UpdateNewsInput{
		Title:       &title,
		Subtitle:    &subtitle,
		Summary:     &summary,
		AuthorID:    &authorID,
		CategoryID:  &categoryID,
		Status:      &status,
		Featured:    &featured,
		PublishedAt: &published,
		Blocks:      &blocks,
		Images:      &images,
		TagIDs:      &tagIDs,
	}, true
}

func (i *Importer) resolveNewsRefs(n ExportNews, maps *refMaps, result *ImportResult) (authorID, categoryID int64, ok bool) {
	authorID, ok = maps.authors[strings.ToLower(n.AuthorEmail)]
	if !ok {
		result.AddError("news", n.Slug, fmt.Sprintf("author %q not found", n.AuthorEmail))
		return 0, 0, false
	}
	categoryID, ok = maps.categoryID(n.CategorySlug)
	if !ok {
		result.AddError("news", n.Slug, fmt.Sprintf("category %q not found", n.CategorySlug))
		return 0, 0, false
	}
	return authorID, categoryID, true
}

func (i *Importer) resolveTags(n ExportNews, maps *refMaps, result *ImportResult) []int64 {
	ids := make([]int64, 0, len(n.Tags))
	for _, slug := range n.Tags {
		id, ok := maps.tagID(slug)
		if !ok {
			result.AddError("news", n.Slug, fmt.Sprintf("tag %q not found; dropped", slug))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (i *Importer) resolveRelated(ctx context.Context, n ExportNews, maps *refMaps, result *ImportResult) []service.RelatedInput {
	out := make([]service.RelatedInput, 0, len(n.Related))
	for _, rel := range n.Related {
		id, ok := maps.docNews[rel.Slug]
		if !ok {
			var err error
			id, ok, err = i.findNewsBySlug(ctx, rel.Slug)
			if err != nil {
				result.AddError("news", n.Slug, err.Error())
				continue
			}
		}
		if !ok {
			result.AddError("news", n.Slug,
				fmt.Sprintf("related article %q not found; link dropped", rel.Slug))
			continue
		}
		out = append(out, service.RelatedInput{RelatedID: id, RelationType: rel.RelationType})
	}
	return out
}

func (i *Importer) findNewsBySlug(ctx context.Context, slug string) (int64, bool, error) {
	agg, err := i.news.GetBySlug(ctx, slug)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return agg.News.ID, true, nil
}

// dryRunID stands in for IDs of entities a dry run would create. It never
// reaches the database.
const dryRunID int64 = -1

// countEntities predicts the outcome of a real import without writing: the
// same existence probes, conflict-strategy decisions and cross-reference
// checks run against the document and the current database state.
func (i *Importer) countEntities(ctx context.Context, data *ExportData, opts ImportOptions, maps *refMaps, result *ImportResult) {
	if opts.ImportAuthors {
		for _, a := range data.Authors {
			email := strings.ToLower(a.Email)
			if _, ok := maps.authors[email]; ok {
				switch opts.ConflictStrategy {
				case ConflictOverwrite:
					result.IncrementUpdated("authors")
				default:
					result.IncrementSkipped("authors")
				}
				continue
			}
			maps.authors[email] = dryRunID
			result.IncrementCreated("authors")
		}
	}

	if opts.ImportCategories {
		pass2 := make(map[string]bool, len(data.Categories))
		for _, c := range data.Categories {
			if id, ok := maps.categories[c.Slug]; ok {
				switch opts.ConflictStrategy {
				case ConflictSkip:
					maps.docCategories[c.Slug] = id
					result.IncrementSkipped("categories")
				case ConflictOverwrite:
					maps.docCategories[c.Slug] = id
					pass2[c.Slug] = true
					result.IncrementUpdated("categories")
				case ConflictRename:
					maps.docCategories[c.Slug] = dryRunID
					pass2[c.Slug] = true
					result.IncrementCreated("categories")
				}
				continue
			}
			maps.categories[c.Slug] = dryRunID
			maps.docCategories[c.Slug] = dryRunID
			pass2[c.Slug] = true
			result.IncrementCreated("categories")
		}
		for _, c := range data.Categories {
			if c.ParentSlug == "" || !pass2[c.Slug] {
				continue
			}
			if _, ok := maps.categoryID(c.ParentSlug); !ok {
				result.AddError("category", c.Slug,
					fmt.Sprintf("parent category %q not found; link dropped", c.ParentSlug))
			}
		}
	}

	if opts.ImportTags {
		for _, t := range data.Tags {
			if id, ok := maps.tags[t.Slug]; ok {
				switch opts.ConflictStrategy {
				case ConflictSkip:
					maps.docTags[t.Slug] = id
					result.IncrementSkipped("tags")
				case ConflictOverwrite:
					maps.docTags[t.Slug] = id
					result.IncrementUpdated("tags")
				case ConflictRename:
					maps.docTags[t.Slug] = dryRunID
					result.IncrementCreated("tags")
				}
				continue
			}
			maps.tags[t.Slug] = dryRunID
			maps.docTags[t.Slug] = dryRunID
			result.IncrementCreated("tags")
		}
	}

	if opts.ImportNews {
		syncRelated := make(map[string]bool, len(data.News))
		for _, n := range data.News {
			_, exists, err := i.findNewsBySlug(ctx, n.Slug)
			if err != nil {
				result.AddError("news", n.Slug, err.Error())
				continue
			}
			if exists && opts.ConflictStrategy == ConflictSkip {
				maps.docNews[n.Slug] = dryRunID
				result.IncrementSkipped("news")
				continue
			}
			if _, ok := i.buildNewsCreate(n, maps, result); !ok {
				continue
			}
			maps.docNews[n.Slug] = dryRunID
			syncRelated[n.Slug] = true
			if exists && opts.ConflictStrategy == ConflictOverwrite {
				result.IncrementUpdated("news")
			} else {
				result.IncrementCreated("news")
			}
		}
		for _, n := range data.News {
			if !syncRelated[n.Slug] {
				continue
			}
			i.resolveRelated(ctx, n, maps, result)
		}
	}
}

func blockInputs(blocks []ExportBlock) []service.BlockInput {
	out := make([]service.BlockInput, 0, len(blocks))
	for _, b := range blocks {
		pos := b.Position
		out = append(out, service.BlockInput{
			Type:     b.Type,
			Content:  b.Content,
			MediaURL: b.MediaURL,
			AltText:  b.AltText,
			Position: &pos,
		})
	}
	return out
}

func imageInputs(images []ExportImage) []service.ImageInput {
	out := make([]service.ImageInput, 0, len(images))
	for _, img := range images {
		pos := img.Position
		out = append(out, service.ImageInput{
			URL:      img.URL,
			Caption:  img.Caption,
			AltText:  img.AltText,
			Position: &pos,
		})
	}
	return out
}
