// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/retry"
)

// ChangedRows returns up to limit rows of t modified strictly after the
// watermark, ordered by (updated_at, id).
func (db *DB) ChangedRows(ctx context.Context, t Table, after models.Watermark, limit int) ([]models.ChangedRow, error) {
	query, args := changedRowsQuery(db.layout, t.TableName(), after, limit)
	return retry.DoValue(ctx, db.policy, "db.changed_rows", func(ctx context.Context) ([]models.ChangedRow, error) {
		var out []models.ChangedRow
		err := db.withConn(ctx, "changed_rows", t.TableName(), func(conn *pgx.Conn) error {
			rows, err := conn.Query(ctx, query, args...)
			if err != nil {
				return err
			}
			out, err = pgx.CollectRows(rows, pgx.RowToStructByName[models.ChangedRow])
			return err
		})
		return out, err
	})
}

// RelatedPrimaryIDs returns one page of primary rows linked through the
// cross table to any of ids, ordered by (updated_at, id) and starting after
// cursor. A zero cursor returns the first page.
func (db *DB) RelatedPrimaryIDs(ctx context.Context, t RelatedTable, ids []string, cursor models.Watermark, limit int) ([]models.ChangedRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args := relatedPrimaryQuery(db.layout, t, ids, cursor, limit)
	return retry.DoValue(ctx, db.policy, "db.related_fanout", func(ctx context.Context) ([]models.ChangedRow, error) {
		var out []models.ChangedRow
		err := db.withConn(ctx, "related_fanout", t.Name, func(conn *pgx.Conn) error {
			rows, err := conn.Query(ctx, query, args...)
			if err != nil {
				return err
			}
			out, err = pgx.CollectRows(rows, pgx.RowToStructByName[models.ChangedRow])
			return err
		})
		return out, err
	})
}

// CrossPrimaryIDs returns one page of distinct primary ids referenced by the
// cross rows ids, in ascending order after afterID.
func (db *DB) CrossPrimaryIDs(ctx context.Context, t CrossTable, ids []string, afterID string, limit int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args := crossPrimaryQuery(db.layout, t, ids, afterID, limit)
	return retry.DoValue(ctx, db.policy, "db.cross_fanout", func(ctx context.Context) ([]string, error) {
		var out []string
		err := db.withConn(ctx, "cross_fanout", t.Name, func(conn *pgx.Conn) error {
			rows, err := conn.Query(ctx, query, args...)
			if err != nil {
				return err
			}
			out, err = pgx.CollectRows(rows, pgx.RowTo[string])
			return err
		})
		return out, err
	})
}

// EnrichedRows returns the enrichment join for ids ordered by film id.
func (db *DB) EnrichedRows(ctx context.Context, ids []string) ([]models.EnrichedRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args := enrichedRowsQuery(db.layout, ids)
	return retry.DoValue(ctx, db.policy, "db.enrich", func(ctx context.Context) ([]models.EnrichedRow, error) {
		var out []models.EnrichedRow
		err := db.withConn(ctx, "enrich", db.layout.Primary.Name, func(conn *pgx.Conn) error {
			rows, err := conn.Query(ctx, query, args...)
			if err != nil {
				return err
			}
			out, err = pgx.CollectRows(rows, pgx.RowToStructByName[models.EnrichedRow])
			return err
		})
		return out, err
	})
}

// LatestWatermark returns the position of the most recently modified row of
// t. ok is false when the table is empty.
func (db *DB) LatestWatermark(ctx context.Context, t Table) (w models.Watermark, ok bool, err error) {
	query, args := latestRowQuery(db.layout, t.TableName())
	row, err := retry.DoValue(ctx, db.policy, "db.latest", func(ctx context.Context) (*models.ChangedRow, error) {
		var out *models.ChangedRow
		err := db.withConn(ctx, "latest", t.TableName(), func(conn *pgx.Conn) error {
			rows, err := conn.Query(ctx, query, args...)
			if err != nil {
				return err
			}
			r, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.ChangedRow])
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			if err != nil {
				return err
			}
			out = &r
			return nil
		})
		return out, err
	})
	if err != nil || row == nil {
		return models.Watermark{}, false, err
	}
	return row.Watermark(), true, nil
}
