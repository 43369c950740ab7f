// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package models

import "time"

// Watermark is the last processed (updated_at, id) of a table. An empty ID
// means only the timestamp is known, which is the case for the configured
// origin and for cold-start positions.
type Watermark struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id,omitempty"`
}

// Compare orders watermarks by timestamp, then id. An empty id sorts before
// any id at the same timestamp.
func (w Watermark) Compare(o Watermark) int {
	if c := w.Timestamp.Compare(o.Timestamp); c != 0 {
		return c
	}
	switch {
	case w.ID < o.ID:
		return -1
	case w.ID > o.ID:
		return 1
	default:
		return 0
	}
}

// ChangedRow is one row returned by the change scanner.
type ChangedRow struct {
	ID        string    `db:"id" json:"id"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Watermark returns the position of this row.
func (r ChangedRow) Watermark() Watermark {
	return Watermark{Timestamp: r.UpdatedAt, ID: r.ID}
}

// ChangeSet is one chunk of changed rows of a table, ordered by (updated_at, id).
type ChangeSet struct {
	Table string       `json:"table"`
	Rows  []ChangedRow `json:"rows"`
}

// IDs returns the row ids in scan order.
func (c ChangeSet) IDs() []string {
	ids := make([]string, len(c.Rows))
	for i, r := range c.Rows {
		ids[i] = r.ID
	}
	return ids
}

// Last returns the final row's watermark. ok is false for an empty set.
func (c ChangeSet) Last() (w Watermark, ok bool) {
	if len(c.Rows) == 0 {
		return Watermark{}, false
	}
	return c.Rows[len(c.Rows)-1].Watermark(), true
}
