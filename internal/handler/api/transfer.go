// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/transfer"
)

const maxImportBytes int64 = 50 << 20 // 50 MB

// Export handles GET /api/v1/export
// Requires admin permission. The response body is the transfer document
// itself, not the usual envelope, so a download re-imports unchanged.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	opts := transfer.DefaultExportOptions()
	if s := r.URL.Query().Get("status"); s != "" {
		if s != "all" && s != "published" && s != "draft" {
			WriteBadRequest(w, "Status must be 'all', 'published' or 'draft'", nil)
			return
		}
		opts.NewsStatus = s
	}

	data, err := h.exporter.Export(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("newsdesk-export-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		// The status line is already on the wire at this point.
		h.logger.Error("export encoding failed", "error", err)
	}
}

// Import handles POST /api/v1/import
// Requires admin permission. The body is a transfer document; dry_run and
// strategy query parameters control how it is applied.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := transfer.DefaultImportOptions()
	if s := q.Get("dry_run"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			WriteBadRequest(w, "Invalid dry_run value", nil)
			return
		}
		opts.DryRun = v
	}
	if s := q.Get("strategy"); s != "" {
		switch transfer.ConflictStrategy(s) {
		case transfer.ConflictSkip, transfer.ConflictOverwrite, transfer.ConflictRename:
			opts.ConflictStrategy = transfer.ConflictStrategy(s)
		default:
			WriteBadRequest(w, "Strategy must be 'skip', 'overwrite' or 'rename'", nil)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var doc transfer.ExportData
	if !decodeJSONBody(w, r, &doc) {
		return
	}

	result, err := h.importer.Import(ctx, &doc, opts)
	if err != nil {
		if errx.KindOf(err) == errx.Invalid && result != nil {
			WriteError(w, http.StatusUnprocessableEntity, "validation_error",
				"Import document failed validation", importErrorDetails(result.Errors))
			return
		}
		h.writeServiceError(w, err)
		return
	}

	WriteSuccess(w, result, nil)
}

// importErrorDetails flattens import errors into the envelope's details map,
// keyed by entity and natural key. Several problems on one entity join into a
// single entry.
func importErrorDetails(errs []transfer.ImportError) map[string]string {
	details := make(map[string]string, len(errs))
	for _, e := range errs {
		key := e.Entity
		if e.ID != "" {
			key += "/" + e.ID
		}
		if existing, ok := details[key]; ok {
			details[key] = existing + "; " + e.Message
		} else {
			details[key] = e.Message
		}
	}
	return details
}
