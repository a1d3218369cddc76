// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return logger, &buf
}

func TestRequestLogger_LogsRequest(t *testing.T) {
	logger, buf := captureLogger()
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest("GET", "/api/news", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "request completed") {
		t.Errorf("log output missing completion message: %s", out)
	}
	if !strings.Contains(out, "method=GET") {
		t.Errorf("log output missing method: %s", out)
	}
	if !strings.Contains(out, "path=/api/news") {
		t.Errorf("log output missing path: %s", out)
	}
	if !strings.Contains(out, "status=200") {
		t.Errorf("log output missing status: %s", out)
	}
	if !strings.Contains(out, "client=Chrome") {
		t.Errorf("log output missing client classification: %s", out)
	}
}

func TestRequestLogger_ServerErrorLevel(t *testing.T) {
	logger, buf := captureLogger()
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest("GET", "/api/news", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("expected ERROR level for 5xx response: %s", out)
	}
	if !strings.Contains(out, "request failed") {
		t.Errorf("expected failure message for 5xx response: %s", out)
	}
}

func TestRequestLogger_BotClassification(t *testing.T) {
	logger, buf := captureLogger()
	handler := RequestLogger(logger)(simpleOKHandler)

	req := httptest.NewRequest("GET", "/news/story", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "bot=true") {
		t.Errorf("expected bot classification: %s", out)
	}
}

func TestRequestLogger_UnknownClient(t *testing.T) {
	logger, buf := captureLogger()
	handler := RequestLogger(logger)(simpleOKHandler)

	req := httptest.NewRequest("GET", "/api/news", nil)
	// No User-Agent header at all
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, "client=unknown") {
		t.Errorf("expected unknown client fallback: %s", out)
	}
}
