// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mileusna/useragent"
)

// RequestLogger returns middleware that logs each request with structured
// attributes: method, path, status, duration, client IP and a user agent
// classification. Server errors are logged at ERROR level so they reach the
// Event Log; everything else stays at INFO.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			ua := useragent.Parse(r.UserAgent())
			client := ua.Name
			if client == "" {
				client = "unknown"
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", getClientIP(r),
				"client", client,
			}
			if ua.Bot {
				attrs = append(attrs, "bot", true)
			}

			if ww.Status() >= http.StatusInternalServerError {
				logger.Error("request failed", attrs...)
			} else {
				logger.Info("request completed", attrs...)
			}
		})
	}
}
