package transfer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/testutil"
)

func TestImportOptions_Defaults(t *testing.T) {
	opts := DefaultImportOptions()

	assert.False(t, opts.DryRun)
	assert.Equal(t, ConflictSkip, opts.ConflictStrategy)
	assert.True(t, opts.ImportAuthors)
	assert.True(t, opts.ImportCategories)
	assert.True(t, opts.ImportTags)
	assert.True(t, opts.ImportNews)
}

func TestConflictStrategy_Values(t *testing.T) {
	assert.Equal(t, ConflictStrategy("skip"), ConflictSkip)
	assert.Equal(t, ConflictStrategy("overwrite"), ConflictOverwrite)
	assert.Equal(t, ConflictStrategy("rename"), ConflictRename)
}

func TestImportResult_Operations(t *testing.T) {
	result := NewImportResult(true)

	assert.True(t, result.Success)
	assert.True(t, result.DryRun)

	result.IncrementCreated("authors")
	result.IncrementCreated("authors")
	result.IncrementCreated("news")
	result.IncrementUpdated("tags")
	result.IncrementSkipped("categories")

	assert.Equal(t, 2, result.Created["authors"])
	assert.Equal(t, 3, result.TotalCreated())
	assert.Equal(t, 1, result.TotalUpdated())
	assert.Equal(t, 1, result.TotalSkipped())

	result.AddError("news", "some-slug", "boom")
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "news", result.Errors[0].Entity)
	assert.Equal(t, "some-slug", result.Errors[0].ID)
}

// validDocument builds the smallest document that passes validation.
func validDocument() *ExportData {
	published := time.Now().UTC()
	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		Authors: []ExportAuthor{
			{Name: "Nora Vance", Email: "nora@example.com"},
		},
		Categories: []ExportCategory{
			{Name: "World", Slug: "world"},
			{Name: "Europe", Slug: "europe", ParentSlug: "world"},
		},
		Tags: []ExportTag{
			{Name: "Elections", Slug: "elections"},
		},
		News: []ExportNews{
			{
				Title:        "Summit Ends Without Deal",
				Slug:         "summit-ends-without-deal",
				Status:       "published",
				AuthorEmail:  "nora@example.com",
				CategorySlug: "europe",
				Tags:         []string{"elections"},
				Blocks:       []ExportBlock{{Type: "text", Content: "Leaders met."}},
				PublishedAt:  &published,
			},
		},
	}
}

func TestImporter_Validate(t *testing.T) {
	imp := NewImporter(nil, nil, nil, nil, testutil.TestLoggerSilent())

	tests := []struct {
		name       string
		mutate     func(*ExportData)
		wantEntity string
		wantText   string
	}{
		{
			name: "valid document",
		},
		{
			name:       "missing version",
			mutate:     func(d *ExportData) { d.Version = "" },
			wantEntity: "export",
			wantText:   "missing version field",
		},
		{
			name:       "unsupported version",
			mutate:     func(d *ExportData) { d.Version = "2.0" },
			wantEntity: "export",
			wantText:   "unsupported document version",
		},
		{
			name:       "invalid author email",
			mutate:     func(d *ExportData) { d.Authors[0].Email = "not-an-email" },
			wantEntity: "author",
			wantText:   "email is not a valid email address",
		},
		{
			name:       "missing category slug",
			mutate:     func(d *ExportData) { d.Categories[0].Slug = "" },
			wantEntity: "category",
			wantText:   "slug is required",
		},
		{
			name:       "missing news title",
			mutate:     func(d *ExportData) { d.News[0].Title = "" },
			wantEntity: "news",
			wantText:   "title is required",
		},
		{
			name:       "unknown news status",
			mutate:     func(d *ExportData) { d.News[0].Status = "archived" },
			wantEntity: "news",
			wantText:   "status must be one of: draft published",
		},
		{
			name:       "unknown block type",
			mutate:     func(d *ExportData) { d.News[0].Blocks[0].Type = "video" },
			wantEntity: "news",
			wantText:   "blocks[0].type must be one of",
		},
		{
			name: "duplicate tag slug",
			mutate: func(d *ExportData) {
				d.Tags = append(d.Tags, ExportTag{Name: "Elections Again", Slug: "elections"})
			},
			wantEntity: "tag",
			wantText:   "duplicate tag slug in document",
		},
		{
			name: "duplicate news slug",
			mutate: func(d *ExportData) {
				d.News = append(d.News, d.News[0])
			},
			wantEntity: "news",
			wantText:   "duplicate news slug in document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			if tt.mutate != nil {
				tt.mutate(doc)
			}

			errs := imp.Validate(doc)
			if tt.wantText == "" {
				assert.Empty(t, errs)
				return
			}

			found := false
			for _, e := range errs {
				if e.Entity == tt.wantEntity && strings.Contains(e.Message, tt.wantText) {
					found = true
					break
				}
			}
			assert.True(t, found, "expected %s error containing %q, got %+v", tt.wantEntity, tt.wantText, errs)
		})
	}
}

func TestImporter_Import_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := validDocument()
	doc.Version = "0.9"

	result, err := env.importer().Import(ctx, doc, DefaultImportOptions())
	require.Error(t, err)
	assert.Equal(t, errx.Invalid, errx.KindOf(err))
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)

	// Nothing reached the database.
	authors, err := env.authors.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestImporter_ImportFromReader_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.importer().ImportFromReader(context.Background(), strings.NewReader("{not json"), DefaultImportOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse JSON")
}

func TestImporter_RoundTrip(t *testing.T) {
	ctx := context.Background()

	source := newTestEnv(t)
	publishedSlug, draftSlug := seedNewsroom(t, source)

	var buf bytes.Buffer
	require.NoError(t, source.exporter().ExportToWriter(ctx, DefaultExportOptions(), &buf))

	target := newTestEnv(t)
	result, err := target.importer().ImportFromReader(ctx, &buf, DefaultImportOptions())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Created["authors"])
	assert.Equal(t, 2, result.Created["categories"])
	assert.Equal(t, 1, result.Created["tags"])
	assert.Equal(t, 2, result.Created["news"])

	// The article keeps its slug, children and publication state.
	agg, err := target.news.GetBySlug(ctx, publishedSlug)
	require.NoError(t, err)
	assert.Equal(t, "Summit Ends Without Deal", agg.News.Title)
	assert.Equal(t, "published", agg.News.Status)
	assert.True(t, agg.News.Featured)
	assert.True(t, agg.News.PublishedAt.Valid)
	require.Len(t, agg.Blocks, 2)
	assert.Equal(t, "text", agg.Blocks[0].Type)
	assert.Equal(t, "quote", agg.Blocks[1].Type)
	require.Len(t, agg.Images, 1)
	assert.Equal(t, "/media/abc123/summit.jpg", agg.Images[0].URL)
	assert.Len(t, agg.TagIDs, 1)

	// The hierarchy rebuilds from parent slugs.
	world, err := target.categories.GetBySlug(ctx, "world")
	require.NoError(t, err)
	europe, err := target.categories.GetBySlug(ctx, "europe")
	require.NoError(t, err)
	require.True(t, europe.ParentID.Valid)
	assert.Equal(t, world.ID, europe.ParentID.Int64)

	// Related links follow document slugs, including forward references.
	draft, err := target.news.GetBySlug(ctx, draftSlug)
	require.NoError(t, err)
	require.Len(t, draft.Related, 1)
	assert.Equal(t, agg.News.ID, draft.Related[0].RelatedID)
	assert.Equal(t, "background", draft.Related[0].RelationType.String)
}

// conflictDocument describes entities that collide with seedConflicts on
// every natural key but carry different content.
func conflictDocument() *ExportData {
	return &ExportData{
		Version: ExportVersion,
		Authors: []ExportAuthor{
			{Name: "Jane Doe", Email: "jane@example.com"},
		},
		Categories: []ExportCategory{
			{Name: "Politics Desk", Slug: "politics"},
		},
		Tags: []ExportTag{
			{Name: "Budget 2026", Slug: "budget"},
		},
		News: []ExportNews{
			{
				Title:        "City Hall Shake-Up",
				Slug:         "city-hall-shake-up",
				Status:       "draft",
				AuthorEmail:  "jane@example.com",
				CategorySlug: "politics",
				Tags:         []string{"budget"},
				Blocks:       []ExportBlock{{Type: "text", Content: "New text from the document."}},
			},
		},
	}
}

func seedConflicts(t *testing.T, env *testEnv) {
	t.Helper()
	author := env.createAuthor(t, "J. Doe (old)", "jane@example.com")
	category := env.createCategory(t, "Politics", nil)
	env.createTag(t, "Budget")
	env.createNews(t, service.CreateNewsInput{
		Title:      "City Hall Shake-Up",
		AuthorID:   author.ID,
		CategoryID: category.ID,
		Status:     "draft",
		Blocks:     []service.BlockInput{{Type: "text", Content: "Old text."}},
	})
}

func TestImporter_ConflictSkip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedConflicts(t, env)

	result, err := env.importer().Import(ctx, conflictDocument(), DefaultImportOptions())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.TotalCreated())
	assert.Zero(t, result.TotalUpdated())
	assert.Equal(t, 4, result.TotalSkipped())

	// Existing content untouched.
	agg, err := env.news.GetBySlug(ctx, "city-hall-shake-up")
	require.NoError(t, err)
	require.Len(t, agg.Blocks, 1)
	assert.Equal(t, "Old text.", agg.Blocks[0].Content)
}

func TestImporter_ConflictOverwrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedConflicts(t, env)

	opts := DefaultImportOptions()
	opts.ConflictStrategy = ConflictOverwrite

	result, err := env.importer().Import(ctx, conflictDocument(), opts)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.TotalCreated())
	assert.Equal(t, 4, result.TotalUpdated())

	// The document's content replaced the stored rows.
	authors, err := env.authors.List(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Jane Doe", authors[0].Name)

	category, err := env.categories.GetBySlug(ctx, "politics")
	require.NoError(t, err)
	assert.Equal(t, "Politics Desk", category.Name)

	agg, err := env.news.GetBySlug(ctx, "city-hall-shake-up")
	require.NoError(t, err)
	require.Len(t, agg.Blocks, 1)
	assert.Equal(t, "New text from the document.", agg.Blocks[0].Content)
	assert.Len(t, agg.TagIDs, 1)
}

func TestImporter_ConflictRename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedConflicts(t, env)

	opts := DefaultImportOptions()
	opts.ConflictStrategy = ConflictRename

	result, err := env.importer().Import(ctx, conflictDocument(), opts)
	require.NoError(t, err)

	assert.True(t, result.Success)
	// Authors carry no slug to rename, so the colliding one is skipped.
	assert.Equal(t, 1, result.Skipped["authors"])
	assert.Equal(t, 1, result.Created["categories"])
	assert.Equal(t, 1, result.Created["tags"])
	assert.Equal(t, 1, result.Created["news"])

	// Renamed copies pick the next free slug.
	category, err := env.categories.GetBySlug(ctx, "politics-2")
	require.NoError(t, err)
	tag, err := env.tags.GetBySlug(ctx, "budget-2")
	require.NoError(t, err)

	// The imported article follows the renamed entities, not the old ones.
	agg, err := env.news.GetBySlug(ctx, "city-hall-shake-up-2")
	require.NoError(t, err)
	assert.Equal(t, category.ID, agg.News.CategoryID)
	require.Len(t, agg.TagIDs, 1)
	assert.Equal(t, tag.ID, agg.TagIDs[0])

	// The original stays as it was.
	orig, err := env.news.GetBySlug(ctx, "city-hall-shake-up")
	require.NoError(t, err)
	require.Len(t, orig.Blocks, 1)
	assert.Equal(t, "Old text.", orig.Blocks[0].Content)
}

func TestImporter_DryRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// One colliding author so the prediction mixes outcomes.
	env.createAuthor(t, "Jane Doe", "jane@example.com")

	opts := DefaultImportOptions()
	opts.DryRun = true

	result, err := env.importer().Import(ctx, conflictDocument(), opts)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Skipped["authors"])
	assert.Equal(t, 1, result.Created["categories"])
	assert.Equal(t, 1, result.Created["tags"])
	assert.Equal(t, 1, result.Created["news"])

	// Nothing was written.
	categories, err := env.categories.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, categories)
	_, err = env.news.GetBySlug(ctx, "city-hall-shake-up")
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestImporter_DanglingReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := &ExportData{
		Version: ExportVersion,
		Authors: []ExportAuthor{
			{Name: "Omar Reyes", Email: "omar@example.com"},
		},
		Categories: []ExportCategory{
			{Name: "Science", Slug: "science"},
		},
		News: []ExportNews{
			{
				Title:        "Ghost Author Piece",
				Slug:         "ghost-author-piece",
				Status:       "draft",
				AuthorEmail:  "nobody@example.com",
				CategorySlug: "science",
			},
			{
				Title:        "Tagged Piece",
				Slug:         "tagged-piece",
				Status:       "draft",
				AuthorEmail:  "omar@example.com",
				CategorySlug: "science",
				Tags:         []string{"missing-tag"},
			},
			{
				Title:        "Linked Piece",
				Slug:         "linked-piece",
				Status:       "draft",
				AuthorEmail:  "omar@example.com",
				CategorySlug: "science",
				Related:      []ExportRelated{{Slug: "no-such-article"}},
			},
		},
	}

	result, err := env.importer().Import(ctx, doc, DefaultImportOptions())
	require.NoError(t, err, "item-level failures must not abort the run")

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Created["news"])
	require.Len(t, result.Errors, 3)

	// A missing author fails the whole article.
	_, err = env.news.GetBySlug(ctx, "ghost-author-piece")
	assert.Equal(t, errx.NotFound, errx.KindOf(err))

	// A missing tag drops just the tag.
	tagged, err := env.news.GetBySlug(ctx, "tagged-piece")
	require.NoError(t, err)
	assert.Empty(t, tagged.TagIDs)

	// A missing related target drops just the link.
	linked, err := env.news.GetBySlug(ctx, "linked-piece")
	require.NoError(t, err)
	assert.Empty(t, linked.Related)
}
