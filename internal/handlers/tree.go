// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"isomer/internal/content"
	"isomer/internal/models"
	"isomer/internal/slug"
	"isomer/internal/store"
)

// Children lists one page of a resource's children. Without a parent
// query parameter the site's top level is listed.
func (a *API) Children(w http.ResponseWriter, r *http.Request) {
	siteID, ok := idParam(w, r, "siteID")
	if !ok {
		return
	}

	q := r.URL.Query()
	var parentID *uuid.UUID
	if p := q.Get("parent"); p != "" {
		id, err := uuid.Parse(p)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid parent.")
			return
		}
		parentID = &id
	}
	limit := 0
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid limit.")
			return
		}
		limit = n
	}

	items, next, err := a.resources.GetChildrenOf(r.Context(), siteID, parentID, q.Get("cursor"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Resource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next_cursor": next})
}

// Resolve finds the resource at a permalink path below the site root.
func (a *API) Resolve(w http.ResponseWriter, r *http.Request) {
	siteID, ok := idParam(w, r, "siteID")
	if !ok {
		return
	}
	var path []string
	for _, seg := range strings.Split(chi.URLParam(r, "*"), "/") {
		if seg != "" {
			path = append(path, seg)
		}
	}

	res, err := a.resources.GetNodeByPermalinkPath(r.Context(), siteID, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResourceGet returns one resource with its derived publish state.
func (a *API) ResourceGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := a.resources.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	state, err := a.resources.State(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": res, "state": state})
}

type createResourceRequest struct {
	ParentID  uuid.UUID       `json:"parent_id" validate:"required"`
	Type      string          `json:"type" validate:"required,resourcetype"`
	Title     string          `json:"title" validate:"required,max=300"`
	Permalink string          `json:"permalink" validate:"omitempty,permalink"`
	Content   json.RawMessage `json:"content" validate:"required"`
}

// ResourceCreate adds a page below an existing parent.
func (a *API) ResourceCreate(w http.ResponseWriter, r *http.Request) {
	siteID, ok := idParam(w, r, "siteID")
	if !ok {
		return
	}
	var req createResourceRequest
	if !a.decode(w, r, &req) {
		return
	}
	doc, err := content.Parse(req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := a.resources.Create(r.Context(), store.CreateParams{
		SiteID:    siteID,
		ParentID:  req.ParentID,
		Type:      models.ResourceType(req.Type),
		Title:     req.Title,
		Permalink: permalinkOrTitle(req.Permalink, req.Title),
		Content:   doc,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type createContainerRequest struct {
	ParentID      uuid.UUID `json:"parent_id" validate:"required"`
	Type          string    `json:"type" validate:"required,oneof=Folder Collection"`
	Title         string    `json:"title" validate:"required,max=300"`
	Permalink     string    `json:"permalink" validate:"omitempty,permalink"`
	WithIndexPage bool      `json:"with_index_page"`
}

// ContainerCreate creates a folder or collection, optionally with its
// index page.
func (a *API) ContainerCreate(w http.ResponseWriter, r *http.Request) {
	siteID, ok := idParam(w, r, "siteID")
	if !ok {
		return
	}
	var req createContainerRequest
	if !a.decode(w, r, &req) {
		return
	}

	container, index, err := a.resources.CreateContainer(r.Context(), store.CreateContainerParams{
		SiteID:        siteID,
		ParentID:      req.ParentID,
		Type:          models.ResourceType(req.Type),
		Title:         req.Title,
		Permalink:     permalinkOrTitle(req.Permalink, req.Title),
		WithIndexPage: req.WithIndexPage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"container": container, "index_page": index})
}

// permalinkOrTitle falls back to a permalink derived from the title.
func permalinkOrTitle(permalink, title string) string {
	if permalink != "" {
		return permalink
	}
	return slug.Permalink(title)
}

type moveRequest struct {
	ParentID uuid.UUID `json:"parent_id" validate:"required"`
}

// ResourceMove re-parents a resource.
func (a *API) ResourceMove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req moveRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.resources.Move(r.Context(), id, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type renameRequest struct {
	Title     string `json:"title" validate:"required,max=300"`
	Permalink string `json:"permalink" validate:"omitempty,permalink"`
}

// ResourceRename changes a resource's title and permalink.
func (a *API) ResourceRename(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req renameRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.resources.Rename(r.Context(), id, req.Title, req.Permalink)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// maxSubtreeNodes caps one subtree response.
const maxSubtreeNodes = 5000

var errSubtreeFull = errors.New("subtree limit reached")

// Subtree lists a resource and all of its descendants breadth-first.
func (a *API) Subtree(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	items := []models.Resource{}
	err := a.resources.WalkSubtree(r.Context(), id, func(res *models.Resource) error {
		if len(items) == maxSubtreeNodes {
			return errSubtreeFull
		}
		items = append(items, *res)
		return nil
	})
	truncated := errors.Is(err, errSubtreeFull)
	if err != nil && !truncated {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "truncated": truncated})
}
