// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package models defines the data that flows through the replication pipeline.

Source side:

  - Watermark: per-table resume position (updated_at, id)
  - ChangedRow / ChangeSet: rows modified after a watermark
  - EnrichedRow: one film x person-role x genre combination, nullable
    association columns as pointers

Index side:

  - Document: one denormalized film, the unit written to the search index
  - Person: an actor or writer reference inside a Document

Documents serialize deterministically: collections are never null and are
kept sorted, so re-encoding a checkpointed batch reproduces the same bytes.
*/
package models
