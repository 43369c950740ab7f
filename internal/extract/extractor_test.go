// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package extract

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/cinesync/internal/config"
	"github.com/tomtom215/cinesync/internal/database"
	"github.com/tomtom215/cinesync/internal/models"
	"github.com/tomtom215/cinesync/internal/state"
)

var (
	t1 = time.Date(2021, 6, 16, 20, 14, 9, 0, time.UTC)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

func testLayout(t *testing.T) *database.Layout {
	t.Helper()
	l, err := database.NewLayout("content", "film_work_id", config.DefaultTables())
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	return l
}

func newTestExtractor(t *testing.T, src Source, dir string, chunk int, coldStart bool) *Extractor {
	t.Helper()
	store := state.New(state.ConsumerExtractor, state.NewFileStorage(dir, state.ConsumerExtractor))
	e, err := New(src, store, Config{
		Layout:               testLayout(t),
		ChunkSize:            chunk,
		Origin:               models.Watermark{Timestamp: t1},
		ColdStartSkipRelated: coldStart,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func collect(t *testing.T, e *Extractor) []Batch {
	t.Helper()
	var out []Batch
	for b, err := range e.Batches(context.Background()) {
		if err != nil {
			t.Fatalf("Batches() error = %v", err)
		}
		out = append(out, b)
	}
	return out
}

func filmIDs(rows []models.EnrichedRow) []string {
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.FilmID)
	}
	return slices.Compact(ids)
}

func TestBatchesNewFilm(t *testing.T) {
	src := newFakeSource()
	src.addRow("film_work", "7", t2)
	src.films["7"] = []models.EnrichedRow{{
		FilmID:     "7",
		FilmTitle:  "Seven",
		PersonRole: strPtr(models.RoleActor),
		PersonID:   strPtr("3"),
		PersonName: strPtr("A"),
		GenreName:  strPtr("Drama"),
	}}

	e := newTestExtractor(t, src, t.TempDir(), 100, false)
	batches := collect(t, e)

	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	b := batches[0]
	if b.Table != "film_work" || !b.Final || b.Replay {
		t.Errorf("batch = %+v", b)
	}
	if len(b.Rows) != 1 || b.Rows[0].FilmID != "7" || *b.Rows[0].GenreName != "Drama" {
		t.Errorf("rows = %+v", b.Rows)
	}
	if got := e.Watermark("film_work"); got != (models.Watermark{Timestamp: t2, ID: "7"}) {
		t.Errorf("watermark = %+v", got)
	}
	if e.Pending() {
		t.Error("pending slot not cleared")
	}
	if got := e.CurrentTable(); got != "person" {
		t.Errorf("CurrentTable() = %q, want person", got)
	}
}

func TestBatchesChunkBoundary(t *testing.T) {
	src := newFakeSource()
	for _, id := range []string{"a", "b", "c"} {
		src.addRow("film_work", id, t2)
	}

	e := newTestExtractor(t, src, t.TempDir(), 2, false)
	batches := collect(t, e)

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if got := filmIDs(batches[0].Rows); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("first batch films = %v", got)
	}
	if got := filmIDs(batches[1].Rows); !slices.Equal(got, []string{"c"}) {
		t.Errorf("second batch films = %v", got)
	}
	if got := e.Watermark("film_work"); got != (models.Watermark{Timestamp: t2, ID: "c"}) {
		t.Errorf("watermark = %+v", got)
	}
}

func TestScannerTiedTimestamps(t *testing.T) {
	src := newFakeSource()
	for _, id := range []string{"a", "b", "c"} {
		src.addRow("film_work", id, t2)
	}
	s := NewScanner(src, 2)
	film := database.PrimaryTable{Name: "film_work"}

	first, err := s.Scan(context.Background(), film, models.Watermark{Timestamp: t1})
	if err != nil {
		t.Fatal(err)
	}
	last, _ := first.Last()
	second, err := s.Scan(context.Background(), film, last)
	if err != nil {
		t.Fatal(err)
	}
	if got := second.IDs(); !slices.Equal(got, []string{"c"}) {
		t.Errorf("second scan = %v, want [c]", got)
	}
}

func TestBatchesReplayAfterCrash(t *testing.T) {
	dir := t.TempDir()
	src := newFakeSource()
	src.addRow("film_work", "a", t2)
	src.addRow("film_work", "b", t2.Add(time.Second))
	src.addRow("film_work", "c", t2.Add(2*time.Second))

	e := newTestExtractor(t, src, dir, 2, false)
	var inFlight Batch
	for b, err := range e.Batches(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		inFlight = b
		break
	}
	if !e.Pending() {
		t.Fatal("batch should stay pending after the consumer stopped")
	}
	if got := e.Watermark("film_work"); got.ID != "" {
		t.Fatalf("watermark advanced before delivery: %+v", got)
	}

	restarted := newTestExtractor(t, src, dir, 2, false)
	batches := collect(t, restarted)

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if !batches[0].Replay {
		t.Error("first batch after restart should be a replay")
	}
	if !slices.Equal(filmIDs(batches[0].Rows), filmIDs(inFlight.Rows)) {
		t.Errorf("replayed %v, want %v", filmIDs(batches[0].Rows), filmIDs(inFlight.Rows))
	}
	if got := filmIDs(batches[1].Rows); !slices.Equal(got, []string{"c"}) {
		t.Errorf("next batch films = %v, want [c]", got)
	}
	if got := restarted.Watermark("film_work").ID; got != "c" {
		t.Errorf("watermark id = %q, want c", got)
	}
}

func TestBatchesRelatedFanOutPages(t *testing.T) {
	src := newFakeSource()
	src.addRow("person", "p1", t2)
	for _, id := range []string{"f1", "f2", "f3"} {
		src.addRow("film_work", id, t1.Add(-time.Hour))
	}
	src.link("person", "p1", "f1", "f2", "f3")

	e := newTestExtractor(t, src, t.TempDir(), 2, false)
	batches := collect(t, e)

	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[0].Table != "person" || batches[0].Final {
		t.Errorf("first page = %+v", batches[0])
	}
	if batches[1].Table != "person" || !batches[1].Final {
		t.Errorf("second page = %+v", batches[1])
	}
	if !slices.Equal(src.enrichCalls[0], []string{"f1", "f2"}) || !slices.Equal(src.enrichCalls[1], []string{"f3"}) {
		t.Errorf("enrich calls = %v", src.enrichCalls)
	}
	if got := e.Watermark("person"); got != (models.Watermark{Timestamp: t2, ID: "p1"}) {
		t.Errorf("person watermark = %+v", got)
	}
}

func TestResolverCrossTable(t *testing.T) {
	src := newFakeSource()
	src.link("genre_film_work", "g1", "f2", "f1")
	src.link("genre_film_work", "g2", "f1", "f3")

	r := NewResolver(src, 2)
	cs := models.ChangeSet{
		Table: "genre_film_work",
		Rows:  []models.ChangedRow{{ID: "g1", UpdatedAt: t2}, {ID: "g2", UpdatedAt: t2}},
	}
	ids, err := r.Resolve(context.Background(), database.CrossTable{Name: "genre_film_work"}, cs)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids, []string{"f1", "f2", "f3"}) {
		t.Errorf("Resolve() = %v", ids)
	}
}

func TestBatchesColdStart(t *testing.T) {
	src := newFakeSource()
	src.addRow("person", "p1", t3)
	src.link("person", "p1", "f1")
	src.addRow("film_work", "f1", t2)

	e := newTestExtractor(t, src, t.TempDir(), 10, true)
	batches := collect(t, e)

	if len(batches) != 1 || batches[0].Table != "film_work" {
		t.Fatalf("batches = %+v", batches)
	}
	if got := e.Watermark("person"); got != (models.Watermark{Timestamp: t3, ID: "p1"}) {
		t.Errorf("person watermark = %+v", got)
	}
	if got := e.Watermark("genre"); got != (models.Watermark{Timestamp: t1}) {
		t.Errorf("genre watermark = %+v", got)
	}
}

func TestBatchesUnlinkedChangeMovesWatermark(t *testing.T) {
	src := newFakeSource()
	src.addRow("genre", "g1", t2)

	e := newTestExtractor(t, src, t.TempDir(), 10, false)
	if batches := collect(t, e); len(batches) != 0 {
		t.Fatalf("got %d batches, want 0", len(batches))
	}
	if got := e.Watermark("genre").ID; got != "g1" {
		t.Errorf("genre watermark id = %q", got)
	}
}

func TestBatchesEnrichError(t *testing.T) {
	src := newFakeSource()
	src.addRow("film_work", "a", t2)
	src.enrichErr = errors.New("relation does not exist")

	e := newTestExtractor(t, src, t.TempDir(), 10, false)
	var gotErr error
	for _, err := range e.Batches(context.Background()) {
		if err != nil {
			gotErr = err
			break
		}
	}
	if !errors.Is(gotErr, src.enrichErr) {
		t.Fatalf("error = %v, want enrich error", gotErr)
	}
	if e.Pending() {
		t.Error("nothing should be pending after a failed read")
	}
	if got := e.Watermark("film_work"); got.ID != "" {
		t.Errorf("watermark advanced: %+v", got)
	}
}

func TestCommitNeverMovesBack(t *testing.T) {
	e := newTestExtractor(t, newFakeSource(), t.TempDir(), 10, false)
	ctx := context.Background()
	high := models.Watermark{Timestamp: t3, ID: "b"}

	if err := e.commit(ctx, "film_work", high); err != nil {
		t.Fatal(err)
	}
	if err := e.commit(ctx, "film_work", models.Watermark{Timestamp: t3, ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := e.commit(ctx, "film_work", models.Watermark{Timestamp: t2, ID: "z"}); err != nil {
		t.Fatal(err)
	}
	if got := e.Watermark("film_work"); got != high {
		t.Errorf("watermark = %+v, want %+v", got, high)
	}
}

func TestNewRejectsConfig(t *testing.T) {
	store := state.New(state.ConsumerExtractor, state.NewFileStorage(t.TempDir(), state.ConsumerExtractor))
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no layout", Config{ChunkSize: 10}},
		{"zero chunk", Config{Layout: testLayout(t)}},
		{"two primaries", Config{ChunkSize: 10, Layout: &database.Layout{Tables: []database.Table{
			database.PrimaryTable{Name: "film_work"},
			database.PrimaryTable{Name: "series"},
		}}}},
		{"no primary", Config{ChunkSize: 10, Layout: &database.Layout{Tables: []database.Table{
			database.CrossTable{Name: "genre_film_work"},
		}}}},
		{"duplicate", Config{ChunkSize: 10, Layout: &database.Layout{Tables: []database.Table{
			database.PrimaryTable{Name: "film_work"},
			database.CrossTable{Name: "film_work"},
		}}}},
		{"related without join", Config{ChunkSize: 10, Layout: &database.Layout{Tables: []database.Table{
			database.PrimaryTable{Name: "film_work"},
			database.RelatedTable{Name: "person"},
		}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(newFakeSource(), store, tt.cfg); !errors.Is(err, ErrConfig) {
				t.Errorf("New() error = %v, want ErrConfig", err)
			}
		})
	}
}
