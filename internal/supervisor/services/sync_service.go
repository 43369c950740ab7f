// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches the sync.Manager lifecycle.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService wraps the sync manager as a supervised service.
type SyncService struct {
	manager StartStopManager
	name    string
}

// NewSyncService returns a SyncService for manager.
func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{
		manager: manager,
		name:    "sync-manager",
	}
}

// Serve implements suture.Service. If Start fails the error is returned and
// suture restarts the service according to its backoff policy.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("sync manager start failed: %w", err)
	}

	<-ctx.Done()

	// Stop blocks until the cycle in progress has returned.
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("sync manager stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *SyncService) String() string {
	return s.name
}
