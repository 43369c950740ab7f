// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package database reads the film catalog from PostgreSQL.

The package owns a single lazily opened pgx connection. Before every
statement the connection is checked and reopened if it was closed or found
broken by a previous statement, so a database restart costs one retried
query rather than a process restart.

Watched tables form a closed set of three variants:

  - PrimaryTable: the root aggregate (film_work); changes map to themselves
  - RelatedTable: reaches the primary through a cross table (person, genre)
  - CrossTable: an association table holding the primary key directly

Each variant has its own fan-out query. All queries are built with
go-sqlbuilder in the PostgreSQL flavor and use keyset pagination on
(updated_at, id), so a resumed scan neither skips nor repeats rows that
share a timestamp.

Every exported query runs under the retry primitive: connection failures,
timeouts and server shutdowns are retried with backoff until they succeed or
the context ends; other errors are returned as is.
*/
package database
