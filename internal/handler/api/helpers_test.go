package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsdesk-go/internal/media"
	"github.com/olegiv/newsdesk-go/internal/middleware"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/testutil"
)

// testSetup creates a migrated test database and an API handler over it.
func testSetup(t *testing.T) (*sql.DB, *Handler) {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	logger := testutil.TestLoggerSilent()
	blobs := media.NewDiskStore(t.TempDir(), logger)
	return db, NewHandler(db, blobs, 10<<20, logger)
}

// createTestAuthor creates an author through the service layer.
func createTestAuthor(t *testing.T, h *Handler, name, email string) model.Author {
	t.Helper()
	author, err := h.authors.Create(context.Background(), service.AuthorInput{
		Name:  name,
		Email: email,
	})
	if err != nil {
		t.Fatalf("creating test author: %v", err)
	}
	return author
}

// createTestCategory creates a category through the service layer.
func createTestCategory(t *testing.T, h *Handler, name string, parentID *int64) model.Category {
	t.Helper()
	cat, err := h.categories.Create(context.Background(), service.CategoryInput{
		Name:     name,
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("creating test category: %v", err)
	}
	return cat
}

// createTestTag creates a tag through the service layer.
func createTestTag(t *testing.T, h *Handler, name string) model.Tag {
	t.Helper()
	tag, err := h.tags.Create(context.Background(), service.TagInput{Name: name})
	if err != nil {
		t.Fatalf("creating test tag: %v", err)
	}
	return tag
}

// createTestNews creates an article through the service layer and returns
// the stored aggregate.
func createTestNews(t *testing.T, h *Handler, in service.CreateNewsInput) model.Aggregate {
	t.Helper()
	id, err := h.news.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("creating test news: %v", err)
	}
	agg, err := h.news.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("reading back test news: %v", err)
	}
	return agg
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withAPIKey attaches an authenticated API key to the request context the
// way the auth middleware would. permissions is a JSON array string.
func withAPIKey(r *http.Request, permissions string) *http.Request {
	key := model.APIKey{
		ID:          1,
		Name:        "API Test Key",
		KeyPrefix:   "nk_test",
		Permissions: permissions,
		IsActive:    true,
	}
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyAPIKey, key))
}

// newJSONRequest creates an HTTP request with a JSON body and optional URL params.
func newJSONRequest(t *testing.T, method, path, body string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// newGetRequest creates an HTTP GET request with optional URL params.
func newGetRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// newDeleteRequest creates an HTTP DELETE request with optional URL params.
func newDeleteRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// dataResponse is a generic wrapper for API responses with a "data" field.
type dataResponse[T any] struct {
	Data T `json:"data"`
}

// listResponse is a generic wrapper for API list responses with data and meta.
type listResponse[T any] struct {
	Data []T   `json:"data"`
	Meta *Meta `json:"meta"`
}

// unmarshalData unmarshals a JSON response body into the specified type.
func unmarshalData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp dataResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data
}

// unmarshalList unmarshals a JSON list response body into the specified type.
func unmarshalList[T any](t *testing.T, w *httptest.ResponseRecorder) ([]T, *Meta) {
	t.Helper()
	var resp listResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data, resp.Meta
}

// unmarshalError unmarshals a JSON error response body.
func unmarshalError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	return resp.Error
}

// executeHandler executes a handler and returns the response recorder.
func executeHandler(t *testing.T, handler func(http.ResponseWriter, *http.Request), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, expected, w.Body.String())
	}
}

func strPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
