// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

// Package testinfra provides container-backed fixtures for integration tests.
//
// Everything except this file is behind the integration build tag:
//
//	go test -tags integration ./...
//
// # Postgres Container
//
// PostgresContainer starts a postgres image, applies the catalog schema and
// exposes a config.PostgresConfig pointing at it:
//
//	func TestChangedRows(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    seed := pg.Seeder(t)
//	    seed.Film(ctx, testinfra.Film{ID: testinfra.UUID(7), Title: "Seven"})
//	    // ...
//	}
//
// Tests are skipped when no Docker daemon is reachable. The first run pulls
// the image.
package testinfra
