// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router wires the API handlers and middleware onto a chi router.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"isomer/internal/handlers"
	"isomer/internal/middleware"
)

// New creates the router with every route and middleware registered.
func New(api *handlers.API) chi.Router {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIHeaders)

		r.Route("/sites", func(r chi.Router) {
			r.Get("/", api.SitesList)
			r.Post("/", api.SiteCreate)

			r.Route("/{siteID}", func(r chi.Router) {
				r.Get("/", api.SiteGet)
				r.Put("/settings", api.SiteSettingsUpdate)
				r.Get("/children", api.Children)
				r.Get("/resolve/*", api.Resolve)
				r.Post("/resources", api.ResourceCreate)
				r.Post("/containers", api.ContainerCreate)
			})
		})

		r.Get("/schedule", api.ScheduleList)

		r.Route("/resources/{id}", func(r chi.Router) {
			r.Get("/", api.ResourceGet)
			r.Get("/subtree", api.Subtree)
			r.Post("/move", api.ResourceMove)
			r.Post("/rename", api.ResourceRename)

			r.Get("/draft", api.DraftGet)
			r.Put("/draft", api.DraftUpdate)
			r.Post("/draft/discard", api.DraftDiscard)
			r.Get("/published", api.PublishedGet)
			r.Post("/publish", api.Publish)
			r.Get("/versions", api.Versions)

			r.Post("/schedule", api.Schedule)
			r.Delete("/schedule/{type}", api.ScheduleCancel)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
