// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package traccar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/enlace/internal/config"
	"github.com/tomtom215/enlace/internal/live"
	"github.com/tomtom215/enlace/internal/logging"
	"github.com/tomtom215/enlace/internal/metrics"
)

// pingFrame is the keepalive payload Traccar expects on its socket.
var pingFrame = []byte(`{"action":"ping"}`)

// readDeadline bounds a single blocking read. A healthy upstream sends
// position frames well within this window; pings keep the connection itself
// alive.
const readDeadline = 60 * time.Second

// writeDeadline bounds keepalive and close writes.
const writeDeadline = 10 * time.Second

// socketFrame is one message from /api/socket. Traccar multiplexes devices,
// positions and events over the same socket; only positions are consumed
// here.
type socketFrame struct {
	Positions []positionRecord `json:"positions"`
}

// positionRecord is a single raw position as the socket delivers it.
// Speed is in knots, course in degrees, fixTime in RFC 3339.
type positionRecord struct {
	DeviceID  int64    `json:"deviceId"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Course    *float64 `json:"course"`
	FixTime   string   `json:"fixTime"`
}

// Feed is the upstream connection state machine. It logs in, upgrades to the
// WebSocket feed, keeps it alive with pings, and ingests position frames into
// the cache. It runs for the process lifetime under the supervisor; every
// failure is contained here and answered with a backoff and a fresh session.
//
// Backoff is session state: the delay doubles on each consecutive failure up
// to the configured ceiling and resets to the initial value once a session
// streams successfully again.
type Feed struct {
	client *Client
	cache  *live.Cache
	cfg    config.TraccarConfig
	logger zerolog.Logger

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	// backoff is only touched from the Serve goroutine.
	backoff time.Duration
}

// NewFeed creates a feed session over the given client and cache.
func NewFeed(client *Client, cache *live.Cache, cfg config.TraccarConfig) *Feed {
	return &Feed{
		client: client,
		cache:  cache,
		cfg:    cfg,
		logger: logging.WithComponent("feed"),
	}
}

// String identifies the feed in supervisor logs.
func (f *Feed) String() string { return "traccar-feed" }

// Serve runs the reconnect loop until the context is canceled. It satisfies
// suture.Service; the supervisor restarts it if it ever returns early.
func (f *Feed) Serve(ctx context.Context) error {
	f.backoff = f.cfg.ReconnectBackoffInitial
	f.publishState()

	for {
		err := f.runSession(ctx)
		if ctx.Err() != nil {
			f.logger.Info().Msg("Feed stopping")
			return ctx.Err()
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			// Rejected credentials will not fix themselves; mark the
			// cache down but keep retrying at the ceiling pace.
			f.cache.SetState(live.FeedDown)
			metrics.FeedLoginFailures.Inc()
			f.logger.Error().Err(err).Msg("Upstream login rejected")
		} else {
			f.cache.SetState(live.FeedReconnecting)
			f.logger.Warn().Err(err).Msg("Feed session ended")
		}
		f.publishState()

		delay := f.nextBackoff()
		f.logger.Info().Dur("delay", delay).Msg("Reconnecting to feed")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		metrics.FeedReconnects.Inc()
	}
}

// runSession performs one full login, handshake and streaming cycle.
// It returns when the connection dies or the context is canceled.
func (f *Feed) runSession(ctx context.Context) error {
	f.logger.Debug().Msg("Authenticating with upstream")
	if err := f.client.Login(ctx); err != nil {
		return err
	}

	wsURL, err := f.cfg.WebSocketURL()
	if err != nil {
		return fmt.Errorf("build socket url: %w", err)
	}

	f.logger.Debug().Str("url", wsURL).Msg("Opening feed socket")
	dialer := websocket.Dialer{
		HandshakeTimeout: f.cfg.HandshakeTimeout,
	}
	header := http.Header{}
	header.Set("Cookie", f.client.SessionCookie())

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("socket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("socket dial: %w", err)
	}

	f.setConn(conn)
	defer f.closeConnection()
	f.logger.Info().Msg("Feed socket connected")

	// Session-scoped cancellation for the ping writer.
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.pingLoop(sessionCtx)
	}()
	defer wg.Wait()

	streamed := false
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("socket closed by upstream: %w", err)
			}
			return fmt.Errorf("socket read: %w", err)
		}

		if !streamed {
			// The session is streaming; consecutive-failure counting
			// starts over.
			streamed = true
			f.resetBackoff()
		}

		f.handleFrame(message)
	}
}

// handleFrame ingests one socket message. Malformed frames and unusable
// records are skipped without aborting the session.
func (f *Feed) handleFrame(data []byte) {
	var frame socketFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.FeedFramesSkipped.WithLabelValues("malformed").Inc()
		f.logger.Debug().Err(err).Msg("Skipping malformed feed frame")
		return
	}
	if len(frame.Positions) == 0 {
		// Device or event frame; not ours.
		metrics.FeedFramesSkipped.WithLabelValues("no_positions").Inc()
		return
	}

	for i := range frame.Positions {
		fix, ok := f.toFix(frame.Positions[i])
		if !ok {
			metrics.FeedFramesSkipped.WithLabelValues("bad_record").Inc()
			continue
		}
		f.cache.Upsert(fix)
		metrics.FeedPositionsReceived.Inc()
	}
	f.publishState()
}

// toFix validates and normalizes a raw record. Speed arrives in knots and is
// stored in km/h.
func (f *Feed) toFix(rec positionRecord) (live.Fix, bool) {
	if rec.DeviceID == 0 {
		return live.Fix{}, false
	}
	if !isFinite(rec.Latitude) || !isFinite(rec.Longitude) {
		return live.Fix{}, false
	}
	fixTime, err := time.Parse(time.RFC3339, rec.FixTime)
	if err != nil {
		return live.Fix{}, false
	}

	fix := live.Fix{
		DeviceID: rec.DeviceID,
		Lat:      rec.Latitude,
		Lon:      rec.Longitude,
		FixTime:  fixTime,
	}
	if rec.Speed != nil {
		kph := live.KnotsToKph(*rec.Speed)
		fix.SpeedKph = &kph
	}
	if rec.Course != nil {
		heading := *rec.Course
		fix.HeadingDeg = &heading
	}
	return fix, true
}

// pingLoop writes the keepalive frame at the configured interval.
// A failed write closes the connection, which wakes the read loop.
func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn := f.getConn()
			if conn == nil {
				return
			}
			f.writeMu.Lock()
			err := conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err == nil {
				err = conn.WriteMessage(websocket.TextMessage, pingFrame)
			}
			f.writeMu.Unlock()
			if err != nil {
				f.logger.Warn().Err(err).Msg("Feed ping failed")
				f.closeConnection()
				return
			}
			f.logger.Debug().Msg("Feed ping sent")
		}
	}
}

// nextBackoff returns the current delay and doubles it for the next failure,
// capped at the configured ceiling.
func (f *Feed) nextBackoff() time.Duration {
	delay := f.backoff
	f.backoff *= 2
	if f.backoff > f.cfg.ReconnectBackoffMax {
		f.backoff = f.cfg.ReconnectBackoffMax
	}
	metrics.FeedBackoffSeconds.Set(delay.Seconds())
	return delay
}

// resetBackoff restores the initial delay after a successful streaming period.
func (f *Feed) resetBackoff() {
	f.backoff = f.cfg.ReconnectBackoffInitial
	metrics.FeedBackoffSeconds.Set(f.backoff.Seconds())
}

// IsConnected reports whether a feed socket is currently open.
func (f *Feed) IsConnected() bool {
	f.connMu.RLock()
	defer f.connMu.RUnlock()
	return f.conn != nil
}

func (f *Feed) setConn(conn *websocket.Conn) {
	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
}

func (f *Feed) getConn() *websocket.Conn {
	f.connMu.RLock()
	defer f.connMu.RUnlock()
	return f.conn
}

// closeConnection closes the socket and clears the handle. Safe to call from
// both the read loop teardown and the ping writer.
func (f *Feed) closeConnection() {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn == nil {
		return
	}
	f.writeMu.Lock()
	_ = f.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	f.writeMu.Unlock()
	if err := f.conn.Close(); err != nil {
		f.logger.Debug().Err(err).Msg("Feed socket close")
	}
	f.conn = nil
}

// publishState mirrors the cache state into the feed gauge.
func (f *Feed) publishState() {
	metrics.SetFeedState(int(f.cache.State()))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
