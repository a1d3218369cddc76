// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package transfer

import (
	"context"
	"testing"

	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/testutil"
)

// testEnv bundles the services a transfer test needs over one database.
type testEnv struct {
	authors    *service.AuthorService
	categories *service.CategoryService
	tags       *service.TagService
	news       *service.NewsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	logger := testutil.TestLoggerSilent()
	return &testEnv{
		authors:    service.NewAuthorService(db, logger),
		categories: service.NewCategoryService(db, logger),
		tags:       service.NewTagService(db, logger),
		news:       service.NewNewsService(db, logger),
	}
}

func (e *testEnv) exporter() *Exporter {
	return NewExporter(e.authors, e.categories, e.tags, e.news, testutil.TestLoggerSilent())
}

func (e *testEnv) importer() *Importer {
	return NewImporter(e.authors, e.categories, e.tags, e.news, testutil.TestLoggerSilent())
}

func (e *testEnv) createAuthor(t *testing.T, name, email string) model.Author {
	t.Helper()
	author, err := e.authors.Create(context.Background(), service.AuthorInput{Name: name, Email: email})
	if err != nil {
		t.Fatalf("creating author %s: %v", name, err)
	}
	return author
}

func (e *testEnv) createCategory(t *testing.T, name string, parentID *int64) model.Category {
	t.Helper()
	cat, err := e.categories.Create(context.Background(), service.CategoryInput{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("creating category %s: %v", name, err)
	}
	return cat
}

func (e *testEnv) createTag(t *testing.T, name string) model.Tag {
	t.Helper()
	tag, err := e.tags.Create(context.Background(), service.TagInput{Name: name})
	if err != nil {
		t.Fatalf("creating tag %s: %v", name, err)
	}
	return tag
}

func (e *testEnv) createNews(t *testing.T, in service.CreateNewsInput) model.Aggregate {
	t.Helper()
	id, err := e.news.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating news %q: %v", in.Title, err)
	}
	agg, err := e.news.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("reading back news %q: %v", in.Title, err)
	}
	return agg
}
