// Cinesync - Incremental Film Catalog Replication for Search
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinesync

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*SyncService)(nil)
	_ suture.Service = (*HTTPServerService)(nil)
)

type mockManager struct {
	mu       sync.Mutex
	started  int
	stopped  int
	startErr error
}

func (m *mockManager) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	return m.startErr
}

func (m *mockManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	return nil
}

func TestSyncServiceLifecycle(t *testing.T) {
	mgr := &mockManager{}
	svc := NewSyncService(mgr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return")
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.started != 1 || mgr.stopped != 1 {
		t.Errorf("started = %d, stopped = %d", mgr.started, mgr.stopped)
	}
	if svc.String() != "sync-manager" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestSyncServiceStartError(t *testing.T) {
	mgr := &mockManager{startErr: errors.New("already running")}
	err := NewSyncService(mgr).Serve(context.Background())
	if err == nil || !errors.Is(err, mgr.startErr) {
		t.Errorf("Serve() error = %v", err)
	}
}

type mockServer struct {
	listenErr error
	stop      chan struct{}
	once      sync.Once
}

func newMockServer(listenErr error) *mockServer {
	return &mockServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stop
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(context.Context) error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func TestHTTPServerServiceShutdown(t *testing.T) {
	svc := NewHTTPServerService(newMockServer(nil), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout = %v", svc.shutdownTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return")
	}
}

func TestHTTPServerServiceListenError(t *testing.T) {
	listenErr := errors.New("address already in use")
	err := NewHTTPServerService(newMockServer(listenErr), time.Second).Serve(context.Background())
	if !errors.Is(err, listenErr) {
		t.Errorf("Serve() error = %v, want listen error", err)
	}
}
