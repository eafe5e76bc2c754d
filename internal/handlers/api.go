// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API editors and operators use to
// read the resource tree, edit drafts, publish and schedule.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/store"
)

// API groups the JSON endpoints and the stores they read and write.
type API struct {
	sites     *store.SiteStore
	resources *store.ResourceStore
	blobs     *store.BlobStore
	versions  *store.VersionStore
	jobs      *store.ScheduledJobStore
	validate  *validator.Validate
}

// NewAPI creates the API handlers.
func NewAPI(
	sites *store.SiteStore,
	resources *store.ResourceStore,
	blobs *store.BlobStore,
	versions *store.VersionStore,
	jobs *store.ScheduledJobStore,
) *API {
	return &API{
		sites:     sites,
		resources: resources,
		blobs:     blobs,
		versions:  versions,
		jobs:      jobs,
		validate:  newValidator(),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeRawJSON writes stored JSON content as-is.
func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps store and content errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNotPublished):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPermalinkTaken), errors.Is(err, models.ErrInvariant):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidParent),
		errors.Is(err, models.ErrInvalidType),
		errors.Is(err, models.ErrInvalidMove),
		errors.Is(err, store.ErrInvalidCursor),
		errors.Is(err, content.ErrInvalidJSON),
		errors.Is(err, content.ErrNotObject),
		errors.Is(err, content.ErrContentMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Server errors are logged and
// their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, status, "Internal Server Error")
		return
	}
	writeMessage(w, status, err.Error())
}

// decode reads a JSON body into dst and validates it.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, validationMessage(err))
		return false
	}
	return true
}

// idParam parses a UUID route parameter.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+name+".")
		return uuid.Nil, false
	}
	return id, true
}
