// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders_Development(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(true)
	handler := SecurityHeaders(cfg)(simpleOKHandler)

	req := httptest.NewRequest("GET", "/news/story", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
	if got := w.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Errorf("Referrer-Policy = %q, want %q", got, "strict-origin-when-cross-origin")
	}
	if got := w.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("expected Content-Security-Policy to be set")
	}

	// HSTS must be absent in development
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want empty in development", got)
	}
}

func TestSecurityHeaders_Production(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	handler := SecurityHeaders(cfg)(simpleOKHandler)

	req := httptest.NewRequest("GET", "/news/story", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	hsts := w.Header().Get("Strict-Transport-Security")
	if hsts == "" {
		t.Fatal("expected Strict-Transport-Security in production")
	}
	if !strings.Contains(hsts, "max-age=31536000") {
		t.Errorf("HSTS = %q, want max-age=31536000", hsts)
	}
	if !strings.Contains(hsts, "includeSubDomains") {
		t.Errorf("HSTS = %q, want includeSubDomains", hsts)
	}
}

func TestSecurityHeaders_ScriptsBlocked(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	handler := SecurityHeaders(cfg)(simpleOKHandler)

	req := httptest.NewRequest("GET", "/news/story", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'none'") {
		t.Errorf("CSP = %q, want script-src 'none'", csp)
	}
}

func TestBuildCSP_Order(t *testing.T) {
	csp := buildCSP(map[string]string{
		"script-src":  "'none'",
		"default-src": "'self'",
	})

	// default-src always comes first for a stable header value
	if !strings.HasPrefix(csp, "default-src 'self'") {
		t.Errorf("CSP = %q, want default-src first", csp)
	}
	if !strings.Contains(csp, "script-src 'none'") {
		t.Errorf("CSP = %q, want script-src directive", csp)
	}
}
