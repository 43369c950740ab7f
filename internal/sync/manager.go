// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package sync runs the replication pipeline on a schedule.

A cycle drains everything available right now:

  - resend a bulk body left unconfirmed by the previous run
  - redeliver a document batch left pending by the aggregator
  - pull extractor batches, fold each into documents and publish them

The loop then sleeps for the configured interval. A failed cycle is logged
and counted; the next cycle starts from the persisted checkpoints, so no
work is lost and nothing is skipped.

Thread Safety:
  - syncMu: one cycle at a time (loop and TriggerSync)
  - mu: protects running, lastSync and lastErr
*/
package sync

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/tomtom215/cinesync/internal/elastic"
	"github.com/tomtom215/cinesync/internal/extract"
	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/models"
)

// BatchSource yields enrichment batches. Implemented by *extract.Extractor.
type BatchSource interface {
	Batches(ctx context.Context) iter.Seq2[extract.Batch, error]
}

// DocumentBuilder folds rows into documents with a durable hand-off.
// Implemented by *transform.Aggregator.
type DocumentBuilder interface {
	Aggregate(ctx context.Context, rows []models.EnrichedRow) iter.Seq2[[]models.Document, error]
	Recover(ctx context.Context, publish func(context.Context, []models.Document) error) error
}

// DocumentPublisher writes documents to the index. Implemented by
// *load.Publisher.
type DocumentPublisher interface {
	Publish(ctx context.Context, docs []models.Document) ([]*elastic.BulkResponse, error)
	Recover(ctx context.Context) (*elastic.BulkResponse, error)
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	Batches   int
	Documents int
	Requests  int
}

// Manager owns the pipeline loop.
type Manager struct {
	extractor  BatchSource
	aggregator DocumentBuilder
	publisher  DocumentPublisher
	interval   time.Duration

	mu       sync.RWMutex
	running  bool
	lastSync time.Time
	lastErr  error
	cancel   context.CancelFunc

	syncMu sync.Mutex
	wg     sync.WaitGroup
}

// NewManager wires the three stages. interval is the pause between cycles.
func NewManager(extractor BatchSource, aggregator DocumentBuilder, publisher DocumentPublisher, interval time.Duration) *Manager {
	logging.Info().Dur("interval", interval).Msg("Sync manager config loaded")
	return &Manager{
		extractor:  extractor,
		aggregator: aggregator,
		publisher:  publisher,
		interval:   interval,
	}
}

// Start runs cycles in the background until Stop is called or ctx ends.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	logging.Info().Msg("Starting sync manager...")
	m.wg.Add(1)
	go m.syncLoop(ctx)
	return nil
}

// Stop cancels the running cycle and waits for the loop to exit.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	cancel()
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastSyncTime returns when the last successful cycle finished.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// LastError returns the error of the most recent cycle, nil if it succeeded.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// TriggerSync runs one cycle now, waiting for any cycle in progress.
func (m *Manager) TriggerSync(ctx context.Context) (CycleStats, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	return m.RunCycle(ctx)
}

func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.syncMu.Lock()
			_, err := m.RunCycle(ctx)
			m.syncMu.Unlock()

			if err != nil && ctx.Err() == nil {
				logging.Error().Err(err).Dur("retry_in", m.interval).Msg("Sync failed")
			}
			timer.Reset(m.interval)
		}
	}
}

// RunCycle drains the pipeline once. Callers other than the loop should use
// TriggerSync to avoid overlapping cycles.
func (m *Manager) RunCycle(ctx context.Context) (CycleStats, error) {
	cycleID := logging.NewCycleID()
	ctx = logging.ContextWithCycleID(ctx, cycleID)
	log := logging.Ctx(ctx)

	start := time.Now()
	log.Debug().Msg("Sync cycle started")

	stats, err := m.drain(ctx)
	duration := time.Since(start)
	canceled := errors.Is(err, context.Canceled)
	metrics.RecordSyncCycle(duration, err, canceled)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.lastSync = time.Now()
	}
	m.mu.Unlock()

	if err != nil {
		return stats, err
	}

	ev := log.Debug()
	if stats.Documents > 0 {
		ev = log.Info()
	}
	ev.Int("batches", stats.Batches).
		Int("documents", stats.Documents).
		Int("requests", stats.Requests).
		Dur("duration", duration).
		Msg("Sync cycle completed")
	return stats, nil
}

func (m *Manager) drain(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	publish := func(ctx context.Context, docs []models.Document) error {
		resps, err := m.publisher.Publish(ctx, docs)
		stats.Requests += len(resps)
		if err != nil {
			return err
		}
		stats.Documents += len(docs)
		return nil
	}

	resp, err := m.publisher.Recover(ctx)
	if err != nil {
		return stats, fmt.Errorf("recover publisher: %w", err)
	}
	if resp != nil {
		stats.Requests++
	}
	if err := m.aggregator.Recover(ctx, publish); err != nil {
		return stats, fmt.Errorf("recover aggregator: %w", err)
	}

	for batch, err := range m.extractor.Batches(ctx) {
		if err != nil {
			return stats, fmt.Errorf("extract: %w", err)
		}
		stats.Batches++

		for docs, err := range m.aggregator.Aggregate(ctx, batch.Rows) {
			if err != nil {
				return stats, fmt.Errorf("aggregate %s batch: %w", batch.Table, err)
			}
			if err := publish(ctx, docs); err != nil {
				return stats, fmt.Errorf("publish %s batch: %w", batch.Table, err)
			}
		}
	}
	return stats, nil
}
