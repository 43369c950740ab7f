// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package middleware provides the HTTP middleware of the ops API.

  - RequestID: X-Request-ID propagation, tagged into the logging context
  - PrometheusMetrics: request counts and latency keyed by chi route pattern

Both have the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
