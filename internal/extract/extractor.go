// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package extract

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/state"
)

// ErrConfig is returned by New for an unusable configuration.
var ErrConfig = errors.New("extractor configuration error")

// Checkpoint keys in the pg_extractor store.
const (
	keyWatermarks   = "watermarks"
	keyCurrentTable = "current_table"
	keyPending      = "pending"
)

// Batch is one page of enrichment rows. Watermark is the position of the
// chunk the page came from; it is committed once the Final page of the
// chunk has been delivered.
type Batch struct {
	Table     string               `json:"table"`
	Watermark models.Watermark     `json:"watermark"`
	Final     bool                 `json:"final"`
	Rows      []models.EnrichedRow `json:"rows"`

	// Replay is set on a batch restored from the pending slot.
	Replay bool `json:"-"`
}

// Config tunes an Extractor.
type Config struct {
	Layout    *database.Layout
	ChunkSize int
	// Origin is the watermark of tables never scanned before.
	Origin models.Watermark
	// ColdStartSkipRelated moves secondary tables straight to their latest
	// row when the primary table has never been scanned.
	ColdStartSkipRelated bool
}

// Extractor produces batches of enriched rows from table changes.
type Extractor struct {
	cfg      Config
	source   Source
	scanner  *Scanner
	resolver *Resolver
	store    *state.Store
	pending  *state.Slot[Batch]

	// watermarks is replaced, never mutated, by the pipeline goroutine.
	mu         sync.RWMutex
	watermarks map[string]models.Watermark
}

// New builds an Extractor over source, resuming from store.
func New(source Source, store *state.Store, cfg Config) (*Extractor, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}

	e := &Extractor{
		cfg:        cfg,
		source:     source,
		scanner:    NewScanner(source, cfg.ChunkSize),
		resolver:   NewResolver(source, cfg.ChunkSize),
		store:      store,
		pending:    state.NewSlot[Batch](store, keyPending),
		watermarks: make(map[string]models.Watermark),
	}

	if _, err := store.Get(keyWatermarks, &e.watermarks); err != nil {
		logging.Warn().Err(err).Str("consumer", store.Name()).Msg("Discarding unreadable watermarks")
		e.watermarks = make(map[string]models.Watermark)
	}
	for table, w := range e.watermarks {
		metrics.RecordWatermark(table, w.Timestamp)
	}
	return e, nil
}

func checkConfig(cfg Config) error {
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfig, cfg.ChunkSize)
	}
	if cfg.Layout == nil {
		return fmt.Errorf("%w: no table layout", ErrConfig)
	}

	primaries := 0
	seen := make(map[string]struct{}, len(cfg.Layout.Tables))
	for _, t := range cfg.Layout.Tables {
		if _, dup := seen[t.TableName()]; dup {
			return fmt.Errorf("%w: table %q listed twice", ErrConfig, t.TableName())
		}
		seen[t.TableName()] = struct{}{}

		switch t := t.(type) {
		case database.PrimaryTable:
			primaries++
		case database.RelatedTable:
			if t.CrossTable == "" || t.CrossKey == "" {
				return fmt.Errorf("%w: related table %q has no join path", ErrConfig, t.Name)
			}
		}
	}
	if primaries != 1 {
		return fmt.Errorf("%w: need exactly one primary table, found %d", ErrConfig, primaries)
	}
	return nil
}

// Watermark returns the committed position of table, or the origin.
func (e *Extractor) Watermark(table string) models.Watermark {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if w, ok := e.watermarks[table]; ok {
		return w
	}
	return e.cfg.Origin
}

// Watermarks returns a copy of every committed position.
func (e *Extractor) Watermarks() map[string]models.Watermark {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]models.Watermark, len(e.watermarks))
	for k, v := range e.watermarks {
		out[k] = v
	}
	return out
}

// CurrentTable returns the table the next scan starts from.
func (e *Extractor) CurrentTable() string {
	var name string
	if ok, err := e.store.Get(keyCurrentTable, &name); err != nil || !ok {
		return e.cfg.Layout.Tables[0].TableName()
	}
	if e.cfg.Layout.Index(name) < 0 {
		return e.cfg.Layout.Tables[0].TableName()
	}
	return name
}

// Pending reports whether an undelivered batch is stored.
func (e *Extractor) Pending() bool {
	return e.pending.Occupied()
}

// Batches yields every batch available now, replaying an undelivered one
// first. The iterator ends when all tables are exhausted or on the first
// error, which is yielded with a zero Batch.
func (e *Extractor) Batches(ctx context.Context) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		fail := func(err error) { yield(Batch{}, err) }

		replayed, ok, err := e.pending.Peek()
		if err != nil {
			fail(fmt.Errorf("read pending batch: %w", err))
			return
		}
		if ok {
			replayed.Replay = true
			logging.Ctx(ctx).Info().
				Str("table", replayed.Table).
				Int("rows", len(replayed.Rows)).
				Msg("Replaying undelivered batch")
			if !e.deliver(ctx, replayed, yield) {
				return
			}
		}

		if err := e.coldStart(ctx); err != nil {
			fail(err)
			return
		}

		tables := e.cfg.Layout.Tables
		for i := e.cfg.Layout.Index(e.CurrentTable()); i < len(tables); {
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}

			t := tables[i]
			cs, err := e.scanner.Scan(ctx, t, e.Watermark(t.TableName()))
			if err != nil {
				fail(fmt.Errorf("scan %s: %w", t.TableName(), err))
				return
			}

			if len(cs.Rows) == 0 {
				i++
				if i < len(tables) {
					if err := e.setCurrentTable(tables[i].TableName()); err != nil {
						fail(err)
						return
					}
				}
				continue
			}

			if !e.processChunk(ctx, t, cs, yield) {
				return
			}
		}

		if err := e.setCurrentTable(tables[0].TableName()); err != nil {
			fail(err)
		}
	}
}

// processChunk fans out and enriches one change set and delivers it page
// by page. It returns false when iteration must stop.
func (e *Extractor) processChunk(ctx context.Context, t database.Table, cs models.ChangeSet, yield func(Batch, error) bool) bool {
	last, _ := cs.Last()

	ids, err := e.resolver.Resolve(ctx, t, cs)
	if err != nil {
		yield(Batch{}, fmt.Errorf("resolve %s: %w", t.TableName(), err))
		return false
	}

	if len(ids) == 0 {
		// Changes that touch no film only move the watermark.
		if err := e.commit(ctx, t.TableName(), last); err != nil {
			yield(Batch{}, err)
			return false
		}
		return true
	}

	for start := 0; start < len(ids); start += e.cfg.ChunkSize {
		end := min(start+e.cfg.ChunkSize, len(ids))

		rows, err := e.source.EnrichedRows(ctx, ids[start:end])
		if err != nil {
			yield(Batch{}, fmt.Errorf("enrich %s: %w", t.TableName(), err))
			return false
		}

		b := Batch{
			Table:     t.TableName(),
			Watermark: last,
			Final:     end == len(ids),
			Rows:      rows,
		}
		if err := e.pending.Put(b); err != nil {
			yield(Batch{}, fmt.Errorf("store pending batch: %w", err))
			return false
		}
		if !e.deliver(ctx, b, yield) {
			return false
		}
	}
	return true
}

// deliver hands b to the consumer and, once the consumer is done with it,
// commits the watermark of a final page and clears the pending slot.
func (e *Extractor) deliver(ctx context.Context, b Batch, yield func(Batch, error) bool) bool {
	metrics.RecordBatch(e.store.Name(), b.Replay)
	if !yield(b, nil) {
		return false
	}

	if b.Final {
		if err := e.commit(ctx, b.Table, b.Watermark); err != nil {
			yield(Batch{}, err)
			return false
		}
	}
	if err := e.pending.Clear(); err != nil {
		yield(Batch{}, fmt.Errorf("clear pending batch: %w", err))
		return false
	}
	return true
}

// commit advances the watermark of table to w. Positions never move back.
func (e *Extractor) commit(ctx context.Context, table string, w models.Watermark) error {
	if cur, ok := e.watermarks[table]; ok && w.Compare(cur) <= 0 {
		return nil
	}

	next := e.Watermarks()
	next[table] = w
	if err := e.store.Set(keyWatermarks, next); err != nil {
		return fmt.Errorf("commit watermark for %s: %w", table, err)
	}
	e.mu.Lock()
	e.watermarks = next
	e.mu.Unlock()

	metrics.RecordWatermark(table, w.Timestamp)
	logging.Ctx(ctx).Debug().
		Str("table", table).
		Time("updated_at", w.Timestamp).
		Str("id", w.ID).
		Msg("Watermark committed")
	return nil
}

func (e *Extractor) setCurrentTable(name string) error {
	if err := e.store.Set(keyCurrentTable, name); err != nil {
		return fmt.Errorf("store current table: %w", err)
	}
	return nil
}

// coldStart positions secondary tables at their latest row the first time
// the primary table is scanned, so that the primary backlog is not
// processed a second time through every association.
func (e *Extractor) coldStart(ctx context.Context) error {
	if !e.cfg.ColdStartSkipRelated {
		return nil
	}
	if _, ok := e.watermarks[e.cfg.Layout.Primary.Name]; ok {
		return nil
	}

	for _, t := range e.cfg.Layout.Tables {
		if _, isPrimary := t.(database.PrimaryTable); isPrimary {
			continue
		}
		if _, ok := e.watermarks[t.TableName()]; ok {
			continue
		}

		w, ok, err := e.source.LatestWatermark(ctx, t)
		if err != nil {
			return fmt.Errorf("cold start %s: %w", t.TableName(), err)
		}
		if !ok {
			w = e.cfg.Origin
		}
		if err := e.commit(ctx, t.TableName(), w); err != nil {
			return err
		}
		logging.Ctx(ctx).Info().
			Str("table", t.TableName()).
			Time("updated_at", w.Timestamp).
			Msg("Cold start: skipping existing rows")
	}
	return nil
}
