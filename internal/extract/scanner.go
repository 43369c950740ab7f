// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package extract

import (
	"context"

	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/models"
)

// Scanner reads changed rows chunk by chunk.
type Scanner struct {
	source    Source
	chunkSize int
}

// NewScanner returns a Scanner reading at most chunkSize rows per call.
func NewScanner(source Source, chunkSize int) *Scanner {
	return &Scanner{source: source, chunkSize: chunkSize}
}

// Scan returns the rows of t strictly after the watermark. An empty set
// means the table has nothing more for now.
func (s *Scanner) Scan(ctx context.Context, t database.Table, after models.Watermark) (models.ChangeSet, error) {
	rows, err := s.source.ChangedRows(ctx, t, after, s.chunkSize)
	if err != nil {
		return models.ChangeSet{}, err
	}
	metrics.RecordScan(t.TableName(), len(rows))
	return models.ChangeSet{Table: t.TableName(), Rows: rows}, nil
}
