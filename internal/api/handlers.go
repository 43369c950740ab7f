// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/sync"
)

// Pinger is a dependency probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PositionReporter exposes the extractor checkpoint.
type PositionReporter interface {
	Watermarks() map[string]models.Watermark
	CurrentTable() string
	Pending() bool
}

// PendingReporter reports whether a stage holds an undelivered batch.
type PendingReporter interface {
	Pending() bool
}

// SyncController is the part of sync.Manager the API drives.
type SyncController interface {
	Running() bool
	LastSyncTime() time.Time
	LastError() error
	TriggerSync(ctx context.Context) (sync.CycleStats, error)
}

// Deps wires the handler. Nil entries are reported as unavailable.
type Deps struct {
	Database    Pinger
	Elastic     Pinger
	Extractor   PositionReporter
	Transformer PendingReporter
	Loader      PendingReporter
	Sync        SyncController
	PingTimeout time.Duration
}

// Handler serves the ops endpoints.
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler returns a Handler. PingTimeout defaults to 5s.
func NewHandler(deps Deps) *Handler {
	if deps.PingTimeout <= 0 {
		deps.PingTimeout = 5 * time.Second
	}
	return &Handler{deps: deps, startTime: time.Now()}
}

// HealthStatus is the /healthz payload.
type HealthStatus struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
}

// ReadinessStatus is the /readyz payload.
type ReadinessStatus struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// PendingStatus flags the stages holding an unconfirmed batch.
type PendingStatus struct {
	Extractor   bool `json:"extractor"`
	Transformer bool `json:"transformer"`
	Loader      bool `json:"loader"`
}

// StateReport is the /api/v1/state payload.
type StateReport struct {
	Watermarks   map[string]models.Watermark `json:"watermarks"`
	CurrentTable string                      `json:"current_table"`
	Pending      PendingStatus               `json:"pending"`
	Running      bool                        `json:"running"`
	LastSync     *time.Time                  `json:"last_sync,omitempty"`
	LastError    string                      `json:"last_error,omitempty"`
}

// SyncResult is the /api/v1/sync payload.
type SyncResult struct {
	Batches   int `json:"batches"`
	Documents int `json:"documents"`
	Requests  int `json:"requests"`
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, HealthStatus{
		Status: "ok",
		Uptime: time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// Readyz pings the source database and the search index.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.PingTimeout)
	defer cancel()

	status := ReadinessStatus{Ready: true, Checks: map[string]string{}}
	for name, p := range map[string]Pinger{"postgres": h.deps.Database, "elasticsearch": h.deps.Elastic} {
		result := "ok"
		switch {
		case p == nil:
			result = "not configured"
			status.Ready = false
		default:
			if err := p.Ping(ctx); err != nil {
				result = err.Error()
				status.Ready = false
			}
		}
		status.Checks[name] = result
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	respondData(w, code, status, start)
}

// State reports the replication checkpoint.
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	report := StateReport{Watermarks: map[string]models.Watermark{}}

	if ex := h.deps.Extractor; ex != nil {
		report.Watermarks = ex.Watermarks()
		report.CurrentTable = ex.CurrentTable()
		report.Pending.Extractor = ex.Pending()
	}
	if h.deps.Transformer != nil {
		report.Pending.Transformer = h.deps.Transformer.Pending()
	}
	if h.deps.Loader != nil {
		report.Pending.Loader = h.deps.Loader.Pending()
	}
	if s := h.deps.Sync; s != nil {
		report.Running = s.Running()
		if last := s.LastSyncTime(); !last.IsZero() {
			report.LastSync = &last
		}
		if err := s.LastError(); err != nil {
			report.LastError = err.Error()
		}
	}

	respondData(w, http.StatusOK, report, start)
}

// TriggerSync runs one cycle and returns its counts.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Sync == nil {
		respondError(r, w, http.StatusServiceUnavailable, "SYNC_UNAVAILABLE", "Sync manager not configured", nil)
		return
	}

	stats, err := h.deps.Sync.TriggerSync(r.Context())
	if err != nil {
		code := http.StatusBadGateway
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusServiceUnavailable
		}
		respondError(r, w, code, "SYNC_FAILED", "Sync cycle failed", err)
		return
	}

	respondData(w, http.StatusOK, SyncResult(stats), start)
}
