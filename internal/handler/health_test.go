// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/newsdesk-go/internal/middleware"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/testutil"
)

func newTestHealthHandler(t *testing.T) (*HealthHandler, func()) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	return NewHealthHandler(db, t.TempDir()), cleanup
}

// withAPIKey simulates the OptionalAPIKeyAuth middleware by placing an API key
// with the given permissions into the request context.
func withAPIKey(r *http.Request, permissions string) *http.Request {
	key := model.APIKey{
		ID:          1,
		Name:        "Health Test Key",
		Permissions: permissions,
		IsActive:    true,
	}
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyAPIKey, key))
}

func TestHealthPublic(t *testing.T) {
	handler, cleanup := newTestHealthHandler(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("status = %v; want healthy", resp["status"])
	}

	// Public response stays minimal
	for _, field := range []string{"uptime", "version", "checks", "timestamp"} {
		if _, ok := resp[field]; ok {
			t.Errorf("public response should not contain %s", field)
		}
	}
}

func TestHealthPublicVerbose(t *testing.T) {
	handler, cleanup := newTestHealthHandler(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if _, ok := resp["system"]; ok {
		t.Error("public response should not contain system info even with verbose=true")
	}
}

func TestHealthWithAPIKey(t *testing.T) {
	handler, cleanup := newTestHealthHandler(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req = withAPIKey(req, `["news:read"]`)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("status = %q; want healthy", resp.Status)
	}
	if resp.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if resp.Uptime == "" {
		t.Error("uptime should not be empty")
	}
	if resp.Version == "" {
		t.Error("version should not be empty")
	}

	// Check details are reserved for admin keys
	if len(resp.Checks) != 0 {
		t.Error("non-admin response should not contain checks")
	}
}

func TestHealthAdmin(t *testing.T) {
	handler, cleanup := newTestHealthHandler(t)
	defer cleanup()

	tests := []struct {
		name           string
		path           string
		wantSystemInfo bool
	}{
		{name: "full details without verbose", path: "/health"},
		{name: "full details with verbose", path: "/health?verbose=true", wantSystemInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req = withAPIKey(req, `["admin"]`)
			w := httptest.NewRecorder()

			handler.Health(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
			}

			var resp HealthStatus
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			dbCheck, ok := resp.Checks["database"]
			if !ok {
				t.Fatal("expected database check in response")
			}
			if dbCheck.Status != "healthy" {
				t.Errorf("database check status = %q; want healthy", dbCheck.Status)
			}
			if _, ok := resp.Checks["disk"]; !ok {
				t.Error("expected disk check in response")
			}

			if tt.wantSystemInfo && resp.System == nil {
				t.Error("expected system info in response")
			}
			if !tt.wantSystemInfo && resp.System != nil {
				t.Error("unexpected system info in response")
			}
		})
	}
}

func TestHealthDegradedDatabase(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	handler := NewHealthHandler(db, t.TempDir())
	cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp["status"] != "degraded" {
		t.Errorf("status = %v; want degraded", resp["status"])
	}
	if _, ok := resp["checks"]; ok {
		t.Error("public degraded response should not contain checks")
	}
}

func TestLiveness(t *testing.T) {
	handler, cleanup := newTestHealthHandler(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "alive" {
		t.Errorf("status = %q; want alive", resp["status"])
	}
}

func TestReadiness(t *testing.T) {
	handler, cleanup := newTestHealthHandler(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "ready" {
		t.Errorf("status = %q; want ready", resp["status"])
	}
}

func TestReadinessNotReady(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	handler := NewHealthHandler(db, t.TempDir())
	cleanup()

	t.Run("public hides detail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		w := httptest.NewRecorder()

		handler.Readiness(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d; want %d", w.Code, http.StatusServiceUnavailable)
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp["status"] != "not_ready" {
			t.Errorf("status = %q; want not_ready", resp["status"])
		}
		if _, ok := resp["message"]; ok {
			t.Error("public not_ready response should not contain message")
		}
	})

	t.Run("authenticated sees detail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		req = withAPIKey(req, `["news:read"]`)
		w := httptest.NewRecorder()

		handler.Readiness(w, req)

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp["message"] == "" {
			t.Error("authenticated not_ready response should contain message")
		}
	})
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{bytes: 512, want: "512 B"},
		{bytes: 2048, want: "2.00 KB"},
		{bytes: 5 * 1024 * 1024, want: "5.00 MB"},
		{bytes: 3 * 1024 * 1024 * 1024, want: "3.00 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q; want %q", tt.bytes, got, tt.want)
		}
	}
}
