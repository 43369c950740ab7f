// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package extract

import (
	"context"
	"slices"
	"time"

	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/models"
)

// fakeSource is an in-memory catalog. links maps a related or cross table
// to key id -> film ids.
type fakeSource struct {
	rows  map[string][]models.ChangedRow
	links map[string]map[string][]string
	films map[string][]models.EnrichedRow

	enrichCalls [][]string
	enrichErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rows:  make(map[string][]models.ChangedRow),
		links: make(map[string]map[string][]string),
		films: make(map[string][]models.EnrichedRow),
	}
}

func (f *fakeSource) addRow(table, id string, ts time.Time) {
	f.rows[table] = append(f.rows[table], models.ChangedRow{ID: id, UpdatedAt: ts})
}

func (f *fakeSource) link(table, key string, films ...string) {
	if f.links[table] == nil {
		f.links[table] = make(map[string][]string)
	}
	f.links[table][key] = append(f.links[table][key], films...)
}

func sortRows(rows []models.ChangedRow) {
	slices.SortFunc(rows, func(a, b models.ChangedRow) int {
		return a.Watermark().Compare(b.Watermark())
	})
}

func after(r models.ChangedRow, w models.Watermark) bool {
	if w.ID == "" {
		return r.UpdatedAt.After(w.Timestamp)
	}
	return r.Watermark().Compare(w) > 0
}

func (f *fakeSource) ChangedRows(_ context.Context, t database.Table, w models.Watermark, limit int) ([]models.ChangedRow, error) {
	rows := slices.Clone(f.rows[t.TableName()])
	sortRows(rows)
	var out []models.ChangedRow
	for _, r := range rows {
		if after(r, w) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) filmRow(id string) models.ChangedRow {
	for _, r := range f.rows["film_work"] {
		if r.ID == id {
			return r
		}
	}
	return models.ChangedRow{ID: id}
}

func (f *fakeSource) linked(table string, keys []string) []string {
	var films []string
	for _, k := range keys {
		films = append(films, f.links[table][k]...)
	}
	slices.Sort(films)
	return slices.Compact(films)
}

func (f *fakeSource) RelatedPrimaryIDs(_ context.Context, t database.RelatedTable, keys []string, cursor models.Watermark, limit int) ([]models.ChangedRow, error) {
	var rows []models.ChangedRow
	for _, id := range f.linked(t.Name, keys) {
		rows = append(rows, f.filmRow(id))
	}
	sortRows(rows)
	var out []models.ChangedRow
	for _, r := range rows {
		if (cursor.Timestamp.IsZero() || after(r, cursor)) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) CrossPrimaryIDs(_ context.Context, t database.CrossTable, keys []string, afterID string, limit int) ([]string, error) {
	var out []string
	for _, id := range f.linked(t.Name, keys) {
		if id > afterID && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeSource) EnrichedRows(_ context.Context, ids []string) ([]models.EnrichedRow, error) {
	f.enrichCalls = append(f.enrichCalls, slices.Clone(ids))
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	var out []models.EnrichedRow
	for _, id := range sorted {
		rows, ok := f.films[id]
		if !ok {
			rows = []models.EnrichedRow{{FilmID: id, FilmTitle: "film " + id}}
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (f *fakeSource) LatestWatermark(_ context.Context, t database.Table) (models.Watermark, bool, error) {
	rows := f.rows[t.TableName()]
	if len(rows) == 0 {
		return models.Watermark{}, false, nil
	}
	latest := slices.MaxFunc(rows, func(a, b models.ChangedRow) int {
		return a.Watermark().Compare(b.Watermark())
	})
	return latest.Watermark(), true, nil
}

func strPtr(s string) *string { return &s }
