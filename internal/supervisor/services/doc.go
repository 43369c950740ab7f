// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

/*
Package services adapts cinesync components to suture.Service.

Each wrapper implements

	type Service interface {
		Serve(ctx context.Context) error
	}

and fmt.Stringer so the supervisor can name it in log lines.

SyncService adapts the Start/Stop lifecycle of the sync manager: Start on
entry, block until the context ends, Stop on the way out.

HTTPServerService runs ListenAndServe and shuts the server down gracefully
when the context ends. A listener failure is returned so that the
supervisor restarts the service with backoff.
*/
package services
