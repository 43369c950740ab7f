// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package state

import (
	"fmt"

	"github.com/tomtom215/cinesync/internal/metrics"
)

// Slot is a durable single-entry queue stored under one key of a Store.
// An entry is written before a stage's side effect and cleared once the
// effect is confirmed; a pending entry found at startup is replayed.
type Slot[T any] struct {
	store *Store
	key   string
}

// NewSlot binds a slot to key in store.
func NewSlot[T any](store *Store, key string) *Slot[T] {
	s := &Slot[T]{store: store, key: key}
	metrics.SetPending(store.Name(), s.Occupied())
	return s
}

// Occupied reports whether an entry is pending.
func (s *Slot[T]) Occupied() bool {
	return s.store.Has(s.key)
}

// Put durably stores v. It fails with ErrSlotOccupied if an entry is pending.
func (s *Slot[T]) Put(v T) error {
	if s.Occupied() {
		return fmt.Errorf("%s/%s: %w", s.store.Name(), s.key, ErrSlotOccupied)
	}
	if err := s.store.Set(s.key, v); err != nil {
		return err
	}
	metrics.SetPending(s.store.Name(), true)
	return nil
}

// Peek returns the pending entry without removing it.
func (s *Slot[T]) Peek() (v T, ok bool, err error) {
	ok, err = s.store.Get(s.key, &v)
	return v, ok, err
}

// Clear removes the pending entry.
func (s *Slot[T]) Clear() error {
	if err := s.store.Delete(s.key); err != nil {
		return err
	}
	metrics.SetPending(s.store.Name(), false)
	return nil
}
