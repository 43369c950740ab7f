// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package api serves the ops HTTP surface of cinesync.

Routes:

	GET  /healthz        liveness, always 200 while the process serves
	GET  /readyz         pings Postgres and Elasticsearch, 503 if either fails
	GET  /metrics        Prometheus exposition
	GET  /api/v1/state   watermarks, current table, pending batches, last sync
	POST /api/v1/sync    runs one replication cycle and reports its counts

JSON responses share the APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}

The API only reads pipeline state. POST /api/v1/sync waits for a cycle in
progress to finish before starting its own.
*/
package api
