// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package extract turns source table changes into batches of enriched rows.

For every watched table, in configured order, the Extractor:

 1. scans the next chunk of rows modified after the table's watermark
 2. resolves the affected film ids (identity for the primary table, a join
    through the association table for related and cross tables)
 3. reads the enrichment join for those films in pages of chunk size
 4. stores each page in the pending slot and hands it to the consumer

Once the consumer has processed the last page of a chunk, the table's
watermark moves to the chunk's last (updated_at, id). A table whose scan
comes back empty is finished for the cycle and the position advances to the
next one.

Batches is a pull iterator. A page is considered delivered only when the
consumer's loop body returns; breaking out of the loop leaves the page
pending, and the next call replays it before reading anything new.

State is kept in the pg_extractor checkpoint store:

	watermarks     map of table name to Watermark
	current_table  table being scanned when the process stopped
	pending        the undelivered Batch, if any
*/
package extract
