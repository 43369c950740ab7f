// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package extract

import (
	"context"
	"fmt"

	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/metrics"
	"github.com/tomtom215/cinesync/internal/models"
)

// Resolver maps a change set to the ids of the films it affects.
type Resolver struct {
	source   Source
	pageSize int
}

// NewResolver returns a Resolver that reads fan-out results pageSize rows
// at a time.
func NewResolver(source Source, pageSize int) *Resolver {
	return &Resolver{source: source, pageSize: pageSize}
}

// Resolve returns the deduplicated film ids affected by cs, reading every
// page of the fan-out join.
func (r *Resolver) Resolve(ctx context.Context, t database.Table, cs models.ChangeSet) ([]string, error) {
	if len(cs.Rows) == 0 {
		return nil, nil
	}

	var (
		ids []string
		err error
	)
	switch t := t.(type) {
	case database.PrimaryTable:
		ids = cs.IDs()
	case database.RelatedTable:
		ids, err = r.related(ctx, t, cs.IDs())
	case database.CrossTable:
		ids, err = r.cross(ctx, t, cs.IDs())
	default:
		err = fmt.Errorf("resolve %s: unsupported table type %T", t.TableName(), t)
	}
	if err != nil {
		return nil, err
	}

	ids = dedupe(ids)
	metrics.RecordFanOut(t.TableName(), len(ids))
	return ids, nil
}

func (r *Resolver) related(ctx context.Context, t database.RelatedTable, keys []string) ([]string, error) {
	var (
		ids    []string
		cursor models.Watermark
	)
	for {
		page, err := r.source.RelatedPrimaryIDs(ctx, t, keys, cursor, r.pageSize)
		if err != nil {
			return nil, err
		}
		for _, row := range page {
			ids = append(ids, row.ID)
		}
		if len(page) < r.pageSize {
			return ids, nil
		}
		cursor = page[len(page)-1].Watermark()
	}
}

func (r *Resolver) cross(ctx context.Context, t database.CrossTable, keys []string) ([]string, error) {
	var (
		ids   []string
		after string
	)
	for {
		page, err := r.source.CrossPrimaryIDs(ctx, t, keys, after, r.pageSize)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page...)
		if len(page) < r.pageSize {
			return ids, nil
		}
		after = page[len(page)-1]
	}
}

// dedupe drops repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
