// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package state

import (
	"fmt"
	"maps"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cinesync/internal/logging"
	"github.com/tomtom215/cinesync/internal/metrics"
)

// Store is the in-memory view of one consumer's snapshot. The pipeline is
// its only writer; the mutex lets the ops API read concurrently.
type Store struct {
	name    string
	storage Storage

	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// New hydrates a Store from storage. A load failure is logged and the store
// starts empty.
func New(name string, storage Storage) *Store {
	data, err := storage.Load()
	if err != nil {
		logging.Warn().
			Err(err).
			Str("consumer", name).
			Msg("Checkpoint state unreadable, starting from empty state")
		data = nil
	}
	if data == nil {
		data = map[string]json.RawMessage{}
	}

	logging.Debug().
		Str("consumer", name).
		Int("keys", len(data)).
		Msg("Checkpoint state loaded")

	return &Store{name: name, storage: storage, data: data}
}

// Name returns the consumer name.
func (s *Store) Name() string {
	return s.name
}

// Get decodes key into v. found is false when the key is absent.
func (s *Store) Get(key string, v any) (found bool, err error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("%s: decode %q: %w", s.name, key, err)
	}
	return true, nil
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Set stores v under key and persists the snapshot before returning. On a
// persistence failure the in-memory view is left unchanged.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode %q: %w", s.name, key, err)
	}
	return s.mutate(func(next map[string]json.RawMessage) {
		next[key] = raw
	})
}

// Delete removes key and persists the snapshot. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	if !s.Has(key) {
		return nil
	}
	return s.mutate(func(next map[string]json.RawMessage) {
		delete(next, key)
	})
}

// All returns a copy of the snapshot.
func (s *Store) All() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

func (s *Store) mutate(apply func(map[string]json.RawMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.data)
	apply(next)

	err := s.storage.Save(next)
	metrics.RecordStateWrite(s.name, err)
	if err != nil {
		return fmt.Errorf("%s: persist checkpoint: %w", s.name, err)
	}
	s.data = next
	return nil
}
