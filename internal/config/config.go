// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the Enlace server.
type Config struct {
	Traccar  TraccarConfig  `koanf:"traccar"`
	Mirror   MirrorConfig   `koanf:"mirror"`
	Store    StoreConfig    `koanf:"store"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// TraccarConfig holds the upstream Traccar connection settings.
type TraccarConfig struct {
	// BaseURL is the Traccar server root, e.g. "https://traccar.example.com".
	BaseURL string `koanf:"base_url"`

	// Email and Password authenticate the session used for both the
	// WebSocket feed and REST calls.
	Email    string `koanf:"email"`
	Password string `koanf:"password"`

	// PingInterval is how often a keepalive ping frame is written to the
	// WebSocket while streaming.
	PingInterval time.Duration `koanf:"ping_interval"`

	// ReconnectBackoffInitial is the first retry delay after a feed
	// failure. The delay doubles per consecutive failure up to
	// ReconnectBackoffMax and resets after a successful streaming period.
	ReconnectBackoffInitial time.Duration `koanf:"reconnect_backoff_initial"`
	ReconnectBackoffMax     time.Duration `koanf:"reconnect_backoff_max"`

	// StaleAfter is the age beyond which a cached fix is flagged stale.
	StaleAfter time.Duration `koanf:"stale_after"`

	// ClockOffset compensates for a known constant skew between the
	// upstream server clock and ours. It is added to fix timestamps
	// before the staleness comparison. Zero means clocks agree.
	ClockOffset time.Duration `koanf:"clock_offset"`

	// RequestTimeout bounds individual REST calls (login, route reports).
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
}

// MirrorConfig holds mirror-link issuance settings.
type MirrorConfig struct {
	// TokenLength is the number of characters in a mirror token.
	TokenLength int `koanf:"token_length"`

	// DefaultTTL applies when a link is issued without an explicit
	// expiration.
	DefaultTTL time.Duration `koanf:"default_ttl"`

	// CleanupInterval is how often expired links are purged from the store.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// PublicBaseURL overrides the scheme and host used when building
	// shareable mirror URLs. Empty means derive from the request.
	PublicBaseURL string `koanf:"public_base_url"`
}

// StoreConfig holds Badger persistence settings.
type StoreConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// InMemory runs Badger without disk persistence. Links do not survive
	// restarts in this mode; intended for tests and throwaway deployments.
	InMemory bool `koanf:"in_memory"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`

	// Timeout applies to reads and idle connections. Write timeout is
	// left unset because SSE responses are long-lived.
	Timeout time.Duration `koanf:"timeout"`

	Environment string `koanf:"environment"`
}

// SecurityConfig holds CORS and rate-limit settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Traccar.BaseURL == "" {
		return fmt.Errorf("traccar.base_url is required")
	}
	u, err := url.Parse(c.Traccar.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("traccar.base_url must be an http(s) URL, got %q", c.Traccar.BaseURL)
	}
	if c.Traccar.Email == "" || c.Traccar.Password == "" {
		return fmt.Errorf("traccar.email and traccar.password are required")
	}
	if c.Traccar.PingInterval <= 0 {
		return fmt.Errorf("traccar.ping_interval must be positive, got %s", c.Traccar.PingInterval)
	}
	if c.Traccar.ReconnectBackoffInitial <= 0 {
		return fmt.Errorf("traccar.reconnect_backoff_initial must be positive, got %s", c.Traccar.ReconnectBackoffInitial)
	}
	if c.Traccar.ReconnectBackoffMax < c.Traccar.ReconnectBackoffInitial {
		return fmt.Errorf("traccar.reconnect_backoff_max (%s) must be >= traccar.reconnect_backoff_initial (%s)",
			c.Traccar.ReconnectBackoffMax, c.Traccar.ReconnectBackoffInitial)
	}
	if c.Traccar.StaleAfter <= 0 {
		return fmt.Errorf("traccar.stale_after must be positive, got %s", c.Traccar.StaleAfter)
	}
	if c.Mirror.TokenLength < 16 {
		return fmt.Errorf("mirror.token_length must be at least 16, got %d", c.Mirror.TokenLength)
	}
	if c.Mirror.DefaultTTL <= 0 {
		return fmt.Errorf("mirror.default_ttl must be positive, got %s", c.Mirror.DefaultTTL)
	}
	if c.Mirror.CleanupInterval <= 0 {
		return fmt.Errorf("mirror.cleanup_interval must be positive, got %s", c.Mirror.CleanupInterval)
	}
	if c.Mirror.PublicBaseURL != "" {
		pu, perr := url.Parse(c.Mirror.PublicBaseURL)
		if perr != nil || (pu.Scheme != "http" && pu.Scheme != "https") {
			return fmt.Errorf("mirror.public_base_url must be an http(s) URL, got %q", c.Mirror.PublicBaseURL)
		}
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

// WebSocketURL derives the Traccar socket endpoint from the base URL.
// An https base yields wss, http yields ws.
func (c *TraccarConfig) WebSocketURL() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/api/socket"
	return u.String(), nil
}
