// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// mockServer simulates *http.Server lifecycle behaviour.
type mockServer struct {
	listenErr    error
	shutdownErr  error
	shutdownSeen atomic.Bool
	release      chan struct{}
}

func newMockServer() *mockServer {
	return &mockServer{release: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.release
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdownSeen.Store(true)
	close(m.release)
	return m.shutdownErr
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Service did not stop after cancellation")
	}
	if !srv.shutdownSeen.Load() {
		t.Error("Expected Shutdown to be called")
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	srv.listenErr = errors.New("address in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.listenErr) {
		t.Errorf("Expected listen error, got %v", err)
	}
}

func TestHTTPServerService_ShutdownFailure(t *testing.T) {
	t.Parallel()

	srv := newMockServer()
	srv.shutdownErr = errors.New("hung connections")
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil || !errors.Is(err, srv.shutdownErr) {
			t.Errorf("Expected shutdown error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Service did not stop after cancellation")
	}
}

func TestHTTPServerService_DefaultTimeout(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(newMockServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("Expected 10s default timeout, got %s", svc.shutdownTimeout)
	}
}

// stubCleanup satisfies CleanupRunner.
type stubCleanup struct {
	calls atomic.Int32
}

func (s *stubCleanup) RunCleanup(ctx context.Context) error {
	s.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestCleanupService_RunsUntilCanceled(t *testing.T) {
	t.Parallel()

	runner := &stubCleanup{}
	svc := NewCleanupService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Service did not stop after cancellation")
	}
	if runner.calls.Load() != 1 {
		t.Errorf("Expected 1 RunCleanup call, got %d", runner.calls.Load())
	}
}

func TestServiceNames(t *testing.T) {
	t.Parallel()

	if got := NewHTTPServerService(newMockServer(), 0).String(); got != "http-server" {
		t.Errorf("Unexpected name %q", got)
	}
	if got := NewCleanupService(&stubCleanup{}).String(); got != "link-cleanup" {
		t.Errorf("Unexpected name %q", got)
	}
}
