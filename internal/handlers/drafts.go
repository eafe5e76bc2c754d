// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/store"
)

// DraftGet returns the editable content of a resource.
func (a *API) DraftGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	blob, err := a.blobs.GetBlobOfResource(r.Context(), id, store.ViewDraft)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, blob.Content)
}

// DraftDiscard throws away unpublished edits by resetting the draft to the
// published content.
func (a *API) DraftDiscard(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	blob, err := a.blobs.DiscardDraft(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("draft discarded", "resource_id", id, "blob_id", blob.ID)
	writeRawJSON(w, http.StatusOK, blob.Content)
}

// DraftUpdate overwrites the draft content with the request body. The
// published version is untouched.
func (a *API) DraftUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "Body is too large.")
		return
	}
	doc, err := content.Parse(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.resources.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = a.blobs.UpdateDraft(r.Context(), store.UpdateBlobParams{
		PageID:  id,
		SiteID:  res.SiteID,
		Content: doc,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishedGet returns the content of the resource's current version.
func (a *API) PublishedGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	data, err := a.blobs.PublishedContent(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, data)
}

type publishRequest struct {
	PublishedBy string `json:"published_by" validate:"required,max=200"`
}

// Publish promotes the draft to a new version.
func (a *API) Publish(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req publishRequest
	if !a.decode(w, r, &req) {
		return
	}
	v, err := a.versions.Promote(r.Context(), id, req.PublishedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Versions lists a resource's published versions, newest first.
func (a *API) Versions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	versions, err := a.versions.ListByResource(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []models.Version{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": versions})
}

type scheduleRequest struct {
	Type string    `json:"type" validate:"required,jobtype"`
	At   time.Time `json:"at" validate:"required"`
}

// Schedule records a publish or search push for a future time. A second
// request for the same resource and type replaces the first.
func (a *API) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req scheduleRequest
	if !a.decode(w, r, &req) {
		return
	}
	job, err := a.jobs.Schedule(r.Context(), id, models.JobType(req.Type), req.At)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("job scheduled", "resource_id", id, "type", job.Type, "at", job.ScheduledAt)
	writeJSON(w, http.StatusCreated, job)
}

// ScheduleCancel removes a pending job.
func (a *API) ScheduleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	t := models.JobType(chi.URLParam(r, "type"))
	if !t.Valid() {
		writeMessage(w, http.StatusBadRequest, "Invalid job type.")
		return
	}
	if err := a.jobs.Cancel(r.Context(), id, t); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScheduleList returns every pending job, soonest first.
func (a *API) ScheduleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.jobs.ListPending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []models.ScheduledJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}
