// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package transform folds enrichment rows into search documents.
//
// Every batch of documents is stored in the pg_to_elastic pending slot
// before it is handed on and cleared once the consumer is done with it. A
// batch left pending by a crash is handed on again, exactly as stored,
// before any new rows are folded.
package transform

import (
	"context"
	"fmt"
	"iter"

	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/state"
)

const keyPending = "pending"

// Aggregator turns enrichment rows into Documents with a durable hand-off.
type Aggregator struct {
	store   *state.Store
	pending *state.Slot[[]models.Document]
}

// New returns an Aggregator persisting to store.
func New(store *state.Store) *Aggregator {
	return &Aggregator{
		store:   store,
		pending: state.NewSlot[[]models.Document](store, keyPending),
	}
}

// Pending reports whether a document batch awaits delivery.
func (a *Aggregator) Pending() bool {
	return a.pending.Occupied()
}

// Aggregate yields a stored pending batch, if any, and then the documents
// built from rows. Each batch is cleared from the slot when the consumer's
// loop body returns; stopping early leaves it pending.
func (a *Aggregator) Aggregate(ctx context.Context, rows []models.EnrichedRow) iter.Seq2[[]models.Document, error] {
	return func(yield func([]models.Document, error) bool) {
		if !a.replay(ctx, yield) {
			return
		}

		docs := BuildDocuments(rows)
		if len(docs) == 0 {
			return
		}
		if err := a.pending.Put(docs); err != nil {
			yield(nil, fmt.Errorf("store pending documents: %w", err))
			return
		}
		a.deliver(docs, false, yield)
	}
}

// Recover hands a stored pending batch to publish and clears it on success.
// It is a no-op when nothing is pending.
func (a *Aggregator) Recover(ctx context.Context, publish func(context.Context, []models.Document) error) error {
	for docs, err := range a.Aggregate(ctx, nil) {
		if err != nil {
			return err
		}
		if err := publish(ctx, docs); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) replay(ctx context.Context, yield func([]models.Document, error) bool) bool {
	docs, ok, err := a.pending.Peek()
	if err != nil {
		yield(nil, fmt.Errorf("read pending documents: %w", err))
		return false
	}
	if !ok {
		return true
	}

	logging.Ctx(ctx).Info().Int("documents", len(docs)).Msg("Replaying undelivered documents")
	return a.deliver(docs, true, yield)
}

func (a *Aggregator) deliver(docs []models.Document, replay bool, yield func([]models.Document, error) bool) bool {
	metrics.RecordBatch(a.store.Name(), replay)
	if !yield(docs, nil) {
		return false
	}
	if err := a.pending.Clear(); err != nil {
		yield(nil, fmt.Errorf("clear pending documents: %w", err))
		return false
	}
	return true
}
