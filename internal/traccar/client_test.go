// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package traccar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/enlace/internal/config"
)

func testClientConfig(baseURL string) config.TraccarConfig {
	return config.TraccarConfig{
		BaseURL:        baseURL,
		Email:          "admin@example.com",
		Password:       "secret",
		RequestTimeout: 5 * time.Second,
	}
}

// loginHandler accepts the expected form credentials and sets a session cookie.
func loginHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostFormValue("email") != "admin@example.com" || r.PostFormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "test-session"})
		w.WriteHeader(http.StatusOK)
	}
}

// TestClient_Login verifies credential posting and cookie capture.
func TestClient_Login(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Expected form content type, got %q", ct)
		}
		loginHandler(t)(w, r)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if got := c.SessionCookie(); got != "JSESSIONID=test-session" {
		t.Errorf("Expected session cookie, got %q", got)
	}
}

// TestClient_Login_Rejected verifies an AuthError on bad credentials.
func TestClient_Login_Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	err := c.Login(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401 in error, got %d", authErr.StatusCode)
	}
	if c.SessionCookie() != "" {
		t.Error("Expected no session cookie after rejected login")
	}
}

// TestClient_Login_NoCookie verifies a 2xx response without the session
// cookie is still an error.
func TestClient_Login_NoCookie(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	if err := c.Login(context.Background()); err == nil {
		t.Fatal("Expected error when login response has no cookie")
	}
}

// TestClient_FetchRoute verifies query encoding, cookie forwarding and both
// payload shapes Traccar is known to return.
func TestClient_FetchRoute(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(6 * time.Hour)

	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"bare array", `[{"deviceId":1,"latitude":52.5},{"deviceId":1,"latitude":52.6}]`, 2},
		{"wrapped object", `{"positions":[{"deviceId":1,"latitude":52.5}]}`, 1},
		{"empty array", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			mux.HandleFunc("/api/session", loginHandler(t))
			mux.HandleFunc("/api/reports/route", func(w http.ResponseWriter, r *http.Request) {
				if cookie, err := r.Cookie("JSESSIONID"); err != nil || cookie.Value != "test-session" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				if r.URL.Query().Get("deviceId") != "7" {
					t.Errorf("Expected deviceId=7, got %q", r.URL.Query().Get("deviceId"))
				}
				if r.URL.Query().Get("from") != from.Format(time.RFC3339) {
					t.Errorf("Unexpected from parameter %q", r.URL.Query().Get("from"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.payload)) //nolint:errcheck
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			c := NewClient(testClientConfig(srv.URL))
			if err := c.Login(context.Background()); err != nil {
				t.Fatalf("Login failed: %v", err)
			}

			positions, err := c.FetchRoute(context.Background(), 7, from, to)
			if err != nil {
				t.Fatalf("FetchRoute failed: %v", err)
			}
			if len(positions) != tt.want {
				t.Errorf("Expected %d positions, got %d", tt.want, len(positions))
			}
		})
	}
}

// TestClient_FetchRoute_UpstreamError verifies a RouteError on non-2xx.
func TestClient_FetchRoute_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	_, err := c.FetchRoute(context.Background(), 7, time.Now().Add(-time.Hour), time.Now())

	var routeErr *RouteError
	if !errors.As(err, &routeErr) {
		t.Fatalf("Expected RouteError, got %v", err)
	}
	if routeErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 in error, got %d", routeErr.StatusCode)
	}
}

// TestClient_DeviceLifecycle exercises create, list and delete round trips.
func TestClient_DeviceLifecycle(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", loginHandler(t))
	mux.HandleFunc("/api/devices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":99,"name":"van-1","uniqueId":"VAN001"}`)) //nolint:errcheck
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":99,"name":"van-1","uniqueId":"VAN001"}]`)) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/devices/99", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(testClientConfig(srv.URL))
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	dev, err := c.CreateDevice(context.Background(), "VAN001", "van-1")
	if err != nil {
		t.Fatalf("CreateDevice failed: %v", err)
	}
	if dev.ID != 99 || dev.UniqueID != "VAN001" {
		t.Errorf("Unexpected device %+v", dev)
	}

	devices, err := c.FetchDevices(context.Background())
	if err != nil {
		t.Fatalf("FetchDevices failed: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != 99 {
		t.Errorf("Unexpected device list %+v", devices)
	}

	if err := c.DeleteDevice(context.Background(), 99); err != nil {
		t.Fatalf("DeleteDevice failed: %v", err)
	}
}

// TestParsePositionsPayload_Malformed verifies parse failures are reported.
func TestParsePositionsPayload_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>error</html>"},
		{"object without positions", `{"error":"nope"}`},
		{"array of scalars", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := parsePositionsPayload([]byte(tt.body)); err == nil {
				t.Errorf("Expected parse error for %q", tt.body)
			}
		})
	}
}
