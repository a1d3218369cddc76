// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers for the news backend.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/newsdesk-go/internal/errx"
	"github.com/olegiv/newsdesk-go/internal/handler"
	"github.com/olegiv/newsdesk-go/internal/media"
	"github.com/olegiv/newsdesk-go/internal/middleware"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/transfer"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db         *sql.DB
	logger     *slog.Logger
	news       *service.NewsService
	categories *service.CategoryService
	tags       *service.TagService
	authors    *service.AuthorService
	media      *service.MediaService
	events     *service.EventService
	exporter   *transfer.Exporter
	importer   *transfer.Importer
}

// NewHandler creates a new API handler with its service layer.
func NewHandler(db *sql.DB, blobs media.Store, maxUploadSize int64, logger *slog.Logger) *Handler {
	h := &Handler{
		db:         db,
		logger:     logger,
		news:       service.NewNewsService(db, logger),
		categories: service.NewCategoryService(db, logger),
		tags:       service.NewTagService(db, logger),
		authors:    service.NewAuthorService(db, logger),
		media:      service.NewMediaService(db, blobs, logger, maxUploadSize),
		events:     service.NewEventService(db),
	}
	h.exporter = transfer.NewExporter(h.authors, h.categories, h.tags, h.news, logger)
	h.importer = transfer.NewImporter(h.authors, h.categories, h.tags, h.news, logger)
	return h
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	resp := Response{
		Data: data,
		Meta: meta,
	}
	WriteJSON(w, http.StatusOK, resp)
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	resp := Response{
		Data: data,
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	WriteJSON(w, statusCode, resp)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeServiceError maps a service-layer error onto the wire. The mapping is
// stable: clients dispatch on the code field, not the message.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch errx.KindOf(err) {
	case errx.NotFound:
		WriteNotFound(w, "Resource not found")
	case errx.Conflict:
		WriteError(w, http.StatusConflict, "conflict", "Conflicts with an existing resource", nil)
	case errx.Invalid:
		if fields, ok := service.AsFieldErrors(err); ok {
			WriteValidationError(w, fields)
			return
		}
		WriteValidationError(w, nil)
	case errx.Exhausted:
		WriteError(w, http.StatusConflict, "slug_exhausted", "Unable to allocate a unique slug", nil)
	case errx.Unavailable:
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable", nil)
	default:
		h.logger.Error("unhandled service error", "error", err)
		WriteInternalError(w, "Internal server error")
	}
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: "v1",
	}, nil)
}

// AuthInfoResponse contains information about the authenticated API key.
type AuthInfoResponse struct {
	KeyPrefix   string   `json:"key_prefix"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// AuthInfo returns information about the authenticated API key.
func (h *Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r)
	if apiKey == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	WriteSuccess(w, AuthInfoResponse{
		KeyPrefix:   apiKey.KeyPrefix,
		Name:        apiKey.Name,
		Permissions: apiKey.GetPermissions(),
	}, nil)
}

// EntityFetcher is a function that fetches an entity by ID.
type EntityFetcher[T any] func(id int64) (T, error)

// requireEntityByID parses an ID from the URL and fetches the entity.
// Returns the entity and true if successful, or zero value and false if error
// (response written). The entityName is used for error messages.
func (h *Handler) requireEntityByID(w http.ResponseWriter, r *http.Request, entityName string) (int64, bool) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+entityName+" ID", nil)
		return 0, false
	}
	return id, true
}

// fetchEntityByID parses an ID and fetches through the service layer.
func fetchEntityByID[T any](h *Handler, w http.ResponseWriter, r *http.Request, entityName string, fetch EntityFetcher[T]) (T, bool) {
	var zero T

	id, ok := h.requireEntityByID(w, r, entityName)
	if !ok {
		return zero, false
	}

	entity, err := fetch(id)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			WriteNotFound(w, capitalizeFirst(entityName)+" not found")
		} else {
			h.writeServiceError(w, err)
		}
		return zero, false
	}

	return entity, true
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// decodeJSONBody decodes the request body into dst, rejecting malformed JSON.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return false
	}
	return true
}
