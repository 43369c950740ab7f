// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinesync/internal/logging"
)

const badgerKeyPrefix = "state:"

// BadgerDB holds the snapshots of all consumers in one Badger database,
// one key per consumer.
type BadgerDB struct {
	db   *badger.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// ErrClosed is returned by Badger-backed storages after Close.
var ErrClosed = errors.New("checkpoint database closed")

// OpenBadger opens (or creates) the checkpoint database at path.
func OpenBadger(path string, syncWrites bool) (*BadgerDB, error) {
	if path == "" {
		return nil, errors.New("badger path is required")
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = syncWrites
	opts.Compression = options.Snappy
	// Snapshots are a few kilobytes; keep the footprint small.
	opts.MemTableSize = 8 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", path).
		Bool("sync_writes", syncWrites).
		Msg("Checkpoint database opened")

	return &BadgerDB{db: db, path: path}, nil
}

// Storage returns the Storage for one consumer.
func (b *BadgerDB) Storage(consumer string) Storage {
	return &badgerStorage{parent: b, key: []byte(badgerKeyPrefix + consumer)}
}

// Close flushes and closes the database.
func (b *BadgerDB) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Str("path", b.path).Msg("Checkpoint database closed")
	return nil
}

type badgerStorage struct {
	parent *BadgerDB
	key    []byte
}

func (s *badgerStorage) Load() (map[string]json.RawMessage, error) {
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	if s.parent.closed {
		return nil, ErrClosed
	}

	snapshot := map[string]json.RawMessage{}
	err := s.parent.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &snapshot); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptState, s.key, err)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *badgerStorage) Save(snapshot map[string]json.RawMessage) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	if s.parent.closed {
		return ErrClosed
	}

	return s.parent.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
}
