package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/olegiv/newsdesk-go/internal/errx"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "newsdesk-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() {
		db.Close()
		os.Remove(dbPath)
	}
}

func createTestAuthor(t *testing.T, q *Queries) int64 {
	t.Helper()
	now := time.Now()
	a, err := q.CreateAuthor(context.Background(), CreateAuthorParams{
		Name:      "Jamie Reporter",
		Email:     "jamie@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAuthor: %v", err)
	}
	return a.ID
}

func createTestCategory(t *testing.T, q *Queries, slug string, parentID int64) int64 {
	t.Helper()
	now := time.Now()
	var parent sql.NullInt64
	if parentID > 0 {
		parent = sql.NullInt64{Int64: parentID, Valid: true}
	}
	c, err := q.CreateCategory(context.Background(), CreateCategoryParams{
		Name:      slug,
		Slug:      slug,
		ParentID:  parent,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", slug, err)
	}
	return c.ID
}

func createTestNews(t *testing.T, q *Queries, authorID, categoryID int64, slug string) int64 {
	t.Helper()
	now := time.Now()
	var s sql.NullString
	if slug != "" {
		s = sql.NullString{String: slug, Valid: true}
	}
	n, err := q.CreateNews(context.Background(), CreateNewsParams{
		Title:      "Test Article",
		AuthorID:   authorID,
		CategoryID: categoryID,
		Status:     "draft",
		Slug:       s,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	return n.ID
}

func TestCreateAndGetNews(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "politics", 0)

	now := time.Now().Truncate(time.Second)
	created, err := q.CreateNews(ctx, CreateNewsParams{
		Title:       "Budget Vote Tonight",
		Subtitle:    "Parliament reconvenes",
		Summary:     "The vote everyone waited for.",
		AuthorID:    authorID,
		CategoryID:  categoryID,
		Status:      "published",
		Slug:        sql.NullString{String: "budget-vote-tonight", Valid: true},
		Featured:    true,
		PublishedAt: sql.NullTime{Time: now, Valid: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateNews: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateNews returned zero id")
	}

	got, err := q.GetNewsByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetNewsByID: %v", err)
	}
	if got.Title != "Budget Vote Tonight" {
		t.Errorf("Title = %q, want %q", got.Title, "Budget Vote Tonight")
	}
	if !got.Featured {
		t.Error("Featured = false, want true")
	}
	if !got.Slug.Valid || got.Slug.String != "budget-vote-tonight" {
		t.Errorf("Slug = %+v, want budget-vote-tonight", got.Slug)
	}

	bySlug, err := q.GetNewsBySlug(ctx, "budget-vote-tonight")
	if err != nil {
		t.Fatalf("GetNewsBySlug: %v", err)
	}
	if bySlug.ID != created.ID {
		t.Errorf("GetNewsBySlug id = %d, want %d", bySlug.ID, created.ID)
	}
}

func TestNewsNullableSlug(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "sports", 0)

	// Several articles without a slug must coexist under the unique index.
	id1 := createTestNews(t, q, authorID, categoryID, "")
	id2 := createTestNews(t, q, authorID, categoryID, "")

	n1, err := q.GetNewsByID(ctx, id1)
	if err != nil {
		t.Fatalf("GetNewsByID: %v", err)
	}
	if n1.Slug.Valid {
		t.Errorf("Slug = %q, want NULL", n1.Slug.String)
	}

	if err := q.UpdateNewsSlug(ctx, id2, "now-i-have-one"); err != nil {
		t.Fatalf("UpdateNewsSlug: %v", err)
	}
	n2, err := q.GetNewsByID(ctx, id2)
	if err != nil {
		t.Fatalf("GetNewsByID: %v", err)
	}
	if !n2.Slug.Valid || n2.Slug.String != "now-i-have-one" {
		t.Errorf("Slug after backfill = %+v, want now-i-have-one", n2.Slug)
	}
}

func TestUniqueSlugConstraint(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "tech", 0)

	createTestNews(t, q, authorID, categoryID, "the-scoop")

	now := time.Now()
	_, err := q.CreateNews(ctx, CreateNewsParams{
		Title:      "Copycat",
		AuthorID:   authorID,
		CategoryID: categoryID,
		Status:     "draft",
		Slug:       sql.NullString{String: "the-scoop", Valid: true},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err == nil {
		t.Fatal("expected unique violation inserting duplicate slug")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation = false for %v", err)
	}
	if kind := errx.KindOf(MapError("store.CreateNews", err)); kind != errx.Conflict {
		t.Errorf("mapped kind = %v, want Conflict", kind)
	}
}

func TestSlugExistenceChecks(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "world", 0)
	newsID := createTestNews(t, q, authorID, categoryID, "taken")

	exists, err := q.NewsSlugExists(ctx, "taken")
	if err != nil || !exists {
		t.Errorf("NewsSlugExists(taken) = %v, %v, want true", exists, err)
	}
	exists, err = q.NewsSlugExists(ctx, "free")
	if err != nil || exists {
		t.Errorf("NewsSlugExists(free) = %v, %v, want false", exists, err)
	}

	// A record never collides with itself through the excluding check.
	exists, err = q.NewsSlugExistsExcluding(ctx, "taken", newsID)
	if err != nil || exists {
		t.Errorf("NewsSlugExistsExcluding(self) = %v, %v, want false", exists, err)
	}
	exists, err = q.NewsSlugExistsExcluding(ctx, "taken", newsID+100)
	if err != nil || !exists {
		t.Errorf("NewsSlugExistsExcluding(other) = %v, %v, want true", exists, err)
	}
}

func TestChildCollections(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "culture", 0)
	newsID := createTestNews(t, q, authorID, categoryID, "with-children")

	for i := 0; i < 3; i++ {
		_, err := q.CreateBlock(ctx, CreateBlockParams{
			NewsID:   newsID,
			Type:     "text",
			Content:  "paragraph",
			Position: int64(i),
		})
		if err != nil {
			t.Fatalf("CreateBlock: %v", err)
		}
	}

	blocks, err := q.ListBlocksByNews(ctx, newsID)
	if err != nil {
		t.Fatalf("ListBlocksByNews: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3", len(blocks))
	}
	for i, b := range blocks {
		if b.Position != int64(i) {
			t.Errorf("blocks[%d].Position = %d, want %d", i, b.Position, i)
		}
	}

	if err := q.DeleteBlocksByNews(ctx, newsID); err != nil {
		t.Fatalf("DeleteBlocksByNews: %v", err)
	}
	blocks, err = q.ListBlocksByNews(ctx, newsID)
	if err != nil {
		t.Fatalf("ListBlocksByNews after delete: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("len(blocks) after delete = %d, want 0", len(blocks))
	}
}

func TestAddNewsTagIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "science", 0)
	newsID := createTestNews(t, q, authorID, categoryID, "tagged")

	now := time.Now()
	tag, err := q.CreateTag(ctx, CreateTagParams{
		Name: "Climate", Slug: "climate", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	// Linking twice must not error and must leave a single row.
	if err := q.AddNewsTag(ctx, newsID, tag.ID); err != nil {
		t.Fatalf("AddNewsTag: %v", err)
	}
	if err := q.AddNewsTag(ctx, newsID, tag.ID); err != nil {
		t.Fatalf("AddNewsTag repeat: %v", err)
	}

	ids, err := q.ListTagIDsByNews(ctx, newsID)
	if err != nil {
		t.Fatalf("ListTagIDsByNews: %v", err)
	}
	if len(ids) != 1 || ids[0] != tag.ID {
		t.Errorf("ListTagIDsByNews = %v, want [%d]", ids, tag.ID)
	}
}

func TestRelatedLinks(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "local", 0)
	first := createTestNews(t, q, authorID, categoryID, "first")
	second := createTestNews(t, q, authorID, categoryID, "second")

	err := q.AddRelatedLink(ctx, AddRelatedLinkParams{
		NewsID:       first,
		RelatedID:    second,
		RelationType: sql.NullString{String: "follow-up", Valid: true},
	})
	if err != nil {
		t.Fatalf("AddRelatedLink: %v", err)
	}
	// Duplicate link is ignored.
	if err := q.AddRelatedLink(ctx, AddRelatedLinkParams{NewsID: first, RelatedID: second}); err != nil {
		t.Fatalf("AddRelatedLink repeat: %v", err)
	}

	links, err := q.ListRelatedByNews(ctx, first)
	if err != nil {
		t.Fatalf("ListRelatedByNews: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("len(links) = %d, want 1", len(links))
	}
	if links[0].RelationType.String != "follow-up" {
		t.Errorf("RelationType = %q, want follow-up", links[0].RelationType.String)
	}

	// The association is directed.
	links, err = q.ListRelatedByNews(ctx, second)
	if err != nil {
		t.Fatalf("ListRelatedByNews(second): %v", err)
	}
	if len(links) != 0 {
		t.Errorf("reverse direction has %d links, want 0", len(links))
	}

	if err := q.DeleteRelatedToNews(ctx, second); err != nil {
		t.Fatalf("DeleteRelatedToNews: %v", err)
	}
	links, _ = q.ListRelatedByNews(ctx, first)
	if len(links) != 0 {
		t.Errorf("links after DeleteRelatedToNews = %d, want 0", len(links))
	}
}

func TestSchemaCascadeOnNewsDelete(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "national", 0)
	newsID := createTestNews(t, q, authorID, categoryID, "to-delete")

	if _, err := q.CreateBlock(ctx, CreateBlockParams{NewsID: newsID, Type: "text", Content: "x"}); err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if _, err := q.CreateImage(ctx, CreateImageParams{NewsID: newsID, URL: "/media/a.jpg"}); err != nil {
		t.Fatalf("CreateImage: %v", err)
	}

	if err := q.DeleteNews(ctx, newsID); err != nil {
		t.Fatalf("DeleteNews: %v", err)
	}

	blocks, err := q.ListBlocksByNews(ctx, newsID)
	if err != nil {
		t.Fatalf("ListBlocksByNews: %v", err)
	}
	images, err := q.ListImagesByNews(ctx, newsID)
	if err != nil {
		t.Fatalf("ListImagesByNews: %v", err)
	}
	if len(blocks) != 0 || len(images) != 0 {
		t.Errorf("cascade left %d blocks, %d images", len(blocks), len(images))
	}
}

func TestCategoryHierarchy(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	root := createTestCategory(t, q, "root", 0)
	child := createTestCategory(t, q, "child", root)
	grandchild := createTestCategory(t, q, "grandchild", child)

	count, err := q.CountCategoryChildren(ctx, root)
	if err != nil {
		t.Fatalf("CountCategoryChildren: %v", err)
	}
	if count != 1 {
		t.Errorf("CountCategoryChildren(root) = %d, want 1", count)
	}

	ids, err := q.GetDescendantCategoryIDs(ctx, root)
	if err != nil {
		t.Fatalf("GetDescendantCategoryIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("descendants of root = %v, want [child grandchild]", ids)
	}
	found := map[int64]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[child] || !found[grandchild] {
		t.Errorf("descendants = %v, want to contain %d and %d", ids, child, grandchild)
	}
}

func TestCategoryDeleteRestrictedByNews(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	authorID := createTestAuthor(t, q)
	categoryID := createTestCategory(t, q, "busy", 0)
	createTestNews(t, q, authorID, categoryID, "occupant")

	err := q.DeleteCategory(ctx, categoryID)
	if err == nil {
		t.Fatal("expected foreign key violation deleting referenced category")
	}
	if !IsForeignKeyViolation(err) {
		t.Errorf("IsForeignKeyViolation = false for %v", err)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errx.Kind
	}{
		{"no rows", sql.ErrNoRows, errx.NotFound},
		{"unique", errStr("UNIQUE constraint failed: news.canonical_slug"), errx.Conflict},
		{"foreign key", errStr("FOREIGN KEY constraint failed"), errx.Conflict},
		{"locked", errStr("database is locked (5) (SQLITE_BUSY)"), errx.Unavailable},
		{"other", errStr("disk I/O error"), errx.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errx.KindOf(MapError("store.Test", tt.err))
			if got != tt.want {
				t.Errorf("MapError kind = %v, want %v", got, tt.want)
			}
		})
	}

	if MapError("store.Test", nil) != nil {
		t.Error("MapError(nil) should be nil")
	}
}

type errStr string

func (e errStr) Error() string { return string(e) }

func TestSeedIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := Seed(ctx, db); err != nil {
		t.Fatalf("Seed second run: %v", err)
	}

	q := New(db)
	count, err := q.CountAuthors(ctx)
	if err != nil {
		t.Fatalf("CountAuthors: %v", err)
	}
	if count != 1 {
		t.Errorf("authors after double seed = %d, want 1", count)
	}
	if _, err := q.GetCategoryBySlug(ctx, DefaultCategorySlug); err != nil {
		t.Errorf("default category missing after seed: %v", err)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	created, err := q.CreateAPIKey(ctx, CreateAPIKeyParams{
		Name:        "dashboard",
		KeyHash:     "deadbeef",
		KeyPrefix:   "dGVzdA",
		Permissions: `["news:read"]`,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if !created.IsActive {
		t.Error("new key should be active")
	}

	got, err := q.GetAPIKeyByHash(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if got.Name != "dashboard" {
		t.Errorf("Name = %q, want dashboard", got.Name)
	}

	err = q.UpdateAPIKeyLastUsed(ctx, UpdateAPIKeyLastUsedParams{
		ID:         got.ID,
		LastUsedAt: sql.NullTime{Time: now, Valid: true},
	})
	if err != nil {
		t.Fatalf("UpdateAPIKeyLastUsed: %v", err)
	}
}
