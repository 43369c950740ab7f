// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cinesync/internal/middleware"
)

// NewRouter mounts the ops routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/state", h.State)
			r.Post("/sync", h.TriggerSync)
		})
	})

	return r
}
