// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package traccar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/enlace/internal/config"
	"github.com/tomtom215/enlace/internal/metrics"
)

// sessionCookieName is the cookie Traccar issues on login and expects on
// every subsequent call, including the WebSocket upgrade.
const sessionCookieName = "JSESSIONID"

// AuthError reports a rejected login. The feed treats it as a hard failure
// (credentials wrong or account disabled), distinct from transient network
// errors.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("traccar login rejected (HTTP %d)", e.StatusCode)
}

// RouteError reports a failed route report fetch. Handlers surface it as a
// 502 to the caller.
type RouteError struct {
	StatusCode int
	Err        error
}

func (e *RouteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("traccar route fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("traccar route fetch failed (HTTP %d)", e.StatusCode)
}

func (e *RouteError) Unwrap() error { return e.Err }

// Device is a device record as Traccar returns it.
type Device struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	UniqueID string `json:"uniqueId"`
	Status   string `json:"status,omitempty"`
}

// Client is an authenticated Traccar REST client. It owns the session cookie
// obtained by Login and attaches it to every call.
type Client struct {
	baseURL  string
	email    string
	password string

	httpClient *http.Client

	cookieMu sync.RWMutex
	cookie   *http.Cookie
}

// NewClient creates a client for the given upstream. Call Login before any
// other method.
func NewClient(cfg config.TraccarConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		email:    cfg.Email,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Login authenticates with a form-encoded POST to /api/session and captures
// the JSESSIONID cookie. A non-2xx response yields an AuthError.
func (c *Client) Login(ctx context.Context) error {
	start := time.Now()

	form := url.Values{}
	form.Set("email", c.email)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/session", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	metrics.RecordTraccarRequest("login", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AuthError{StatusCode: resp.StatusCode}
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookieName {
			c.cookieMu.Lock()
			c.cookie = ck
			c.cookieMu.Unlock()
			return nil
		}
	}

	return fmt.Errorf("login succeeded but no %s cookie in response", sessionCookieName)
}

// SessionCookie returns the current session cookie header value, e.g.
// "JSESSIONID=abc123". Empty before a successful Login.
func (c *Client) SessionCookie() string {
	c.cookieMu.RLock()
	defer c.cookieMu.RUnlock()
	if c.cookie == nil {
		return ""
	}
	return c.cookie.Name + "=" + c.cookie.Value
}

// FetchRoute retrieves the historical route report for a device between two
// instants. Records are passed through untouched; Enlace does not interpret
// trail points. Any failure is wrapped in a RouteError.
func (c *Client) FetchRoute(ctx context.Context, deviceID int64, from, to time.Time) ([]map[string]interface{}, error) {
	start := time.Now()

	q := url.Values{}
	q.Set("deviceId", strconv.FormatInt(deviceID, 10))
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))

	body, status, err := c.get(ctx, "/api/reports/route?"+q.Encode())
	metrics.RecordTraccarRequest("route", time.Since(start), err)
	if err != nil {
		return nil, &RouteError{Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &RouteError{StatusCode: status}
	}

	positions, err := parsePositionsPayload(body)
	if err != nil {
		return nil, &RouteError{Err: err}
	}
	return positions, nil
}

// parsePositionsPayload accepts either a bare JSON array of positions or an
// object wrapping them as {"positions":[...]}; Traccar has shipped both.
func parsePositionsPayload(body []byte) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var positions []map[string]interface{}
		if err := json.Unmarshal(trimmed, &positions); err != nil {
			return nil, fmt.Errorf("parse positions array: %w", err)
		}
		return positions, nil
	}

	var wrapper struct {
		Positions []map[string]interface{} `json:"positions"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, fmt.Errorf("parse positions object: %w", err)
	}
	if wrapper.Positions == nil {
		return nil, fmt.Errorf("response carries no positions field")
	}
	return wrapper.Positions, nil
}

// CreateDevice registers a device with the upstream and returns the created
// record, including the ID Traccar assigned.
func (c *Client) CreateDevice(ctx context.Context, uniqueID, name string) (Device, error) {
	start := time.Now()

	payload, err := json.Marshal(map[string]string{
		"name":     name,
		"uniqueId": uniqueID,
	})
	if err != nil {
		return Device{}, fmt.Errorf("marshal device: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/devices", bytes.NewReader(payload))
	if err != nil {
		return Device{}, fmt.Errorf("build device request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.attachSession(req)

	resp, err := c.httpClient.Do(req)
	metrics.RecordTraccarRequest("device_create", time.Since(start), err)
	if err != nil {
		return Device{}, fmt.Errorf("create device: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Device{}, fmt.Errorf("create device rejected (HTTP %d)", resp.StatusCode)
	}

	var dev Device
	if err := json.NewDecoder(resp.Body).Decode(&dev); err != nil {
		return Device{}, fmt.Errorf("decode created device: %w", err)
	}
	return dev, nil
}

// DeleteDevice removes a device from the upstream.
func (c *Client) DeleteDevice(ctx context.Context, id int64) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/devices/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	c.attachSession(req)

	resp, err := c.httpClient.Do(req)
	metrics.RecordTraccarRequest("device_delete", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete device rejected (HTTP %d)", resp.StatusCode)
	}
	return nil
}

// FetchDevices lists all devices visible to the session.
func (c *Client) FetchDevices(ctx context.Context) ([]Device, error) {
	start := time.Now()

	body, status, err := c.get(ctx, "/api/devices")
	metrics.RecordTraccarRequest("device_list", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("list devices rejected (HTTP %d)", status)
	}

	var devices []Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	return devices, nil
}

// get performs an authenticated GET and returns the body and status code.
func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.attachSession(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// attachSession adds the session cookie to an outgoing request if present.
func (c *Client) attachSession(req *http.Request) {
	c.cookieMu.RLock()
	defer c.cookieMu.RUnlock()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
}
