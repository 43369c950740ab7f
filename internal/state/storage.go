// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package state is the checkpoint store: a small durable key/value snapshot
// per logical consumer (pg_extractor, pg_to_elastic, elastic_load).
//
// A Store is hydrated once when it is created and every Set rewrites the
// whole snapshot before returning. Unreadable or corrupt snapshots are
// logged and treated as empty, so an operator can always delete a broken
// file and resume from the configured watermark origin.
//
// Stage boundaries use Slot, a single-entry durable queue over one key of a
// Store: Put fails while an entry is pending, and the entry stays until Clear.
package state

import (
	"errors"

	"github.com/goccy/go-json"
)

// Consumer names.
const (
	ConsumerExtractor   = "pg_extractor"
	ConsumerTransformer = "pg_to_elastic"
	ConsumerLoader      = "elastic_load"
)

var (
	// ErrCorruptState is returned by Storage.Load for undecodable snapshots.
	ErrCorruptState = errors.New("corrupt checkpoint state")

	// ErrSlotOccupied is returned by Slot.Put while an entry is pending.
	ErrSlotOccupied = errors.New("checkpoint slot already holds a pending batch")
)

// Storage persists one consumer's snapshot.
type Storage interface {
	// Load returns the stored snapshot, or an empty map when none exists.
	Load() (map[string]json.RawMessage, error)

	// Save durably replaces the snapshot.
	Save(snapshot map[string]json.RawMessage) error
}
