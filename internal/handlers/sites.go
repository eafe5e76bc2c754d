// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"

	"isomer/internal/store"
)

type createSiteRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SitesList returns every site.
func (a *API) SitesList(w http.ResponseWriter, r *http.Request) {
	sites, err := a.sites.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sites})
}

// SiteCreate creates a site together with its root page.
func (a *API) SiteCreate(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if !a.decode(w, r, &req) {
		return
	}
	site, root, err := a.sites.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"site": site, "root": root})
}

// SiteGet returns one site with its settings documents.
func (a *API) SiteGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "siteID")
	if !ok {
		return
	}
	site, err := a.sites.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

type siteSettingsRequest struct {
	Config json.RawMessage `json:"config"`
	Navbar json.RawMessage `json:"navbar"`
	Footer json.RawMessage `json:"footer"`
	Theme  json.RawMessage `json:"theme"`
}

// SiteSettingsUpdate replaces the settings documents present in the body.
func (a *API) SiteSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "siteID")
	if !ok {
		return
	}
	var req siteSettingsRequest
	if !a.decode(w, r, &req) {
		return
	}
	site, err := a.sites.UpdateSettings(r.Context(), id, store.SiteSettings{
		Config: req.Config,
		Navbar: req.Navbar,
		Footer: req.Footer,
		Theme:  req.Theme,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}
