// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// FileStorage keeps a snapshot in <dir>/<consumer>.json.
type FileStorage struct {
	dir  string
	path string
}

// NewFileStorage returns the storage for consumer under dir. The directory
// is created on first save.
func NewFileStorage(dir, consumer string) *FileStorage {
	return &FileStorage{
		dir:  dir,
		path: filepath.Join(dir, consumer+".json"),
	}
}

// Path returns the snapshot file path.
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads the snapshot. A missing file is an empty snapshot.
func (f *FileStorage) Load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	snapshot := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, f.path, err)
	}
	return snapshot, nil
}

// Save writes the snapshot to a temporary file, fsyncs it and renames it over
// the previous one, so a crash leaves either the old or the new snapshot.
func (f *FileStorage) Save(snapshot map[string]json.RawMessage) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		closeQuietly(tmp)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		closeQuietly(tmp)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}

	return syncDir(f.dir)
}

// syncDir persists the rename. Some platforms cannot fsync a directory; that
// is not treated as an error.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer closeQuietly(d)
	_ = d.Sync()
	return nil
}

func closeQuietly(f *os.File) {
	_ = f.Close()
}
