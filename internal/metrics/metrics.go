// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package metrics holds the Prometheus collectors for every pipeline stage.
// Collectors register with the default registry via promauto and are exposed
// by the ops server on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinesync_db_query_duration_seconds",
			Help:    "Duration of source database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_db_query_errors_total",
			Help: "Source database query failures by class",
		},
		[]string{"operation", "table", "class"}, // class: transient, permanent
	)

	DBReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinesync_db_reconnects_total",
			Help: "Number of times the source connection was (re)opened",
		},
	)

	// Extraction
	RowsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_rows_scanned_total",
			Help: "Changed rows returned by the change scanner",
		},
		[]string{"table"},
	)

	PrimaryIDsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_primary_ids_resolved_total",
			Help: "Primary ids produced by fan-out, by originating table",
		},
		[]string{"table"},
	)

	WatermarkTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinesync_watermark_timestamp_seconds",
			Help: "Committed watermark timestamp per table (unix seconds)",
		},
		[]string{"table"},
	)

	// Stage batches and pending slots
	BatchesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_batches_total",
			Help: "Batches handed to the next stage",
		},
		[]string{"stage", "source"}, // source: fresh, replay
	)

	PendingBatches = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinesync_pending_batches",
			Help: "1 when a stage holds an unconfirmed batch",
		},
		[]string{"stage"},
	)

	StateWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_state_writes_total",
			Help: "Checkpoint snapshot writes",
		},
		[]string{"consumer", "result"},
	)

	// Publishing
	DocumentsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinesync_documents_published_total",
			Help: "Documents accepted by bulk requests",
		},
	)

	BulkRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinesync_bulk_request_duration_seconds",
			Help:    "Duration of bulk requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BulkItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinesync_bulk_responses_with_errors_total",
			Help: "Bulk responses whose errors flag was set",
		},
	)

	// Retry primitive
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_retry_attempts_total",
			Help: "Transient failures that were retried, by operation",
		},
		[]string{"operation"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinesync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Cycles
	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_sync_cycles_total",
			Help: "Completed replication cycles by outcome",
		},
		[]string{"status"}, // success, error, canceled
	)

	SyncCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinesync_sync_cycle_duration_seconds",
			Help:    "Duration of replication cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinesync_last_successful_sync_timestamp_seconds",
			Help: "Unix time of the last successful cycle",
		},
	)

	// Ops API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinesync_api_requests_total",
			Help: "Total ops API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinesync_api_request_duration_seconds",
			Help:    "Ops API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinesync_api_active_requests",
			Help: "Ops API requests in flight",
		},
	)
)

// RecordDBQuery records a source query. transient classifies a non-nil err.
func RecordDBQuery(operation, table string, duration time.Duration, err error, transient bool) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err == nil {
		return
	}
	class := "permanent"
	if transient {
		class = "transient"
	}
	DBQueryErrors.WithLabelValues(operation, table, class).Inc()
}

// RecordScan records one change-scanner chunk.
func RecordScan(table string, rows int) {
	RowsScanned.WithLabelValues(table).Add(float64(rows))
}

// RecordFanOut records the primary ids produced for a chunk of table.
func RecordFanOut(table string, ids int) {
	PrimaryIDsResolved.WithLabelValues(table).Add(float64(ids))
}

// RecordWatermark publishes a committed watermark.
func RecordWatermark(table string, ts time.Time) {
	WatermarkTimestamp.WithLabelValues(table).Set(float64(ts.Unix()))
}

// RecordBatch counts a batch handed downstream by stage.
func RecordBatch(stage string, replay bool) {
	source := "fresh"
	if replay {
		source = "replay"
	}
	BatchesEmitted.WithLabelValues(stage, source).Inc()
}

// SetPending flags whether stage holds an unconfirmed batch.
func SetPending(stage string, pending bool) {
	v := 0.0
	if pending {
		v = 1
	}
	PendingBatches.WithLabelValues(stage).Set(v)
}

// RecordStateWrite counts a checkpoint write.
func RecordStateWrite(consumer string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StateWrites.WithLabelValues(consumer, result).Inc()
}

// RecordBulk records one bulk request.
func RecordBulk(duration time.Duration, docs int, hadErrors bool) {
	BulkRequestDuration.Observe(duration.Seconds())
	DocumentsPublished.Add(float64(docs))
	if hadErrors {
		BulkItemErrors.Inc()
	}
}

// RecordRetry counts one retried transient failure.
func RecordRetry(operation string) {
	RetryAttempts.WithLabelValues(operation).Inc()
}

// RecordSyncCycle records the outcome of a replication cycle.
func RecordSyncCycle(duration time.Duration, err error, canceled bool) {
	SyncCycleDuration.Observe(duration.Seconds())
	switch {
	case err == nil:
		SyncCycles.WithLabelValues("success").Inc()
		LastSyncTimestamp.Set(float64(time.Now().Unix()))
	case canceled:
		SyncCycles.WithLabelValues("canceled").Inc()
	default:
		SyncCycles.WithLabelValues("error").Inc()
	}
}

// RecordAPIRequest records one ops API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
