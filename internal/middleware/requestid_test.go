// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRequestID_Generated verifies an ID is minted and propagated.
func TestRequestID_Generated(t *testing.T) {
	t.Parallel()

	var seenID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seenID == "" {
		t.Fatal("Expected a request ID in context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("Expected header %q to match context ID %q", got, seenID)
	}
}

// TestRequestID_UpstreamHonored verifies a proxy-assigned ID is kept.
func TestRequestID_UpstreamHonored(t *testing.T) {
	t.Parallel()

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "proxy-id-1" {
			t.Errorf("Expected upstream ID, got %q", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "proxy-id-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "proxy-id-1" {
		t.Errorf("Expected upstream ID in response header, got %q", got)
	}
}

// TestPrometheusMetrics_FlusherPassthrough verifies the metrics wrapper does
// not hide the Flusher needed by SSE handlers.
func TestPrometheusMetrics_FlusherPassthrough(t *testing.T) {
	t.Parallel()

	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("Expected wrapped writer to implement http.Flusher")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/live/stream", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
}
