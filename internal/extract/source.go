// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package extract

import (
	"context"

	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/models"
)

// Source is the read side of the relational store. *database.DB
// implements it.
type Source interface {
	ChangedRows(ctx context.Context, t database.Table, after models.Watermark, limit int) ([]models.ChangedRow, error)
	RelatedPrimaryIDs(ctx context.Context, t database.RelatedTable, ids []string, cursor models.Watermark, limit int) ([]models.ChangedRow, error)
	CrossPrimaryIDs(ctx context.Context, t database.CrossTable, ids []string, afterID string, limit int) ([]string, error)
	EnrichedRows(ctx context.Context, ids []string) ([]models.EnrichedRow, error)
	LatestWatermark(ctx context.Context, t database.Table) (models.Watermark, bool, error)
}

var _ Source = (*database.DB)(nil)
