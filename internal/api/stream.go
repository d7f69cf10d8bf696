// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/enlace/internal/live"
	"github.com/tomtom215/enlace/internal/logging"
	"github.com/tomtom215/enlace/internal/metrics"
)

// streamTick is the delivery cadence: each viewer is re-evaluated on this
// interval, and a position event goes out only when the cached fix is
// strictly newer than the last one sent to that viewer. The tick, not the
// feed, is the dedup mechanism.
const streamTick = 2 * time.Second

// AdminLiveStream streams position events for a device to an operator.
func (h *Handler) AdminLiveStream(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := parseDeviceIDQuery(w, r)
	if !ok {
		return
	}
	h.streamPositions(w, r, deviceID, nil)
}

// MirrorStream streams position events behind a mirror token. The token is
// re-checked on every tick; a link that expires or is revoked mid-stream
// gets a terminal expired event.
func (h *Handler) MirrorStream(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	deviceID, ok := h.mirror.ResolveActiveDeviceID(r.Context(), token)
	if !ok {
		writeError(w, http.StatusGone, ErrCodeTokenExpired)
		return
	}

	h.streamPositions(w, r, deviceID, func() bool {
		_, active := h.mirror.ResolveActiveDeviceID(r.Context(), token)
		return active
	})
}

// streamPositions runs one viewer connection until the client disconnects or
// access is cut. checkActive is nil on the admin surface.
//
// Per tick, in order: access check, feed health, then newer-fix delivery.
// Silence on a tick is deliberate; the viewer's EventSource stays open.
func (h *Handler) streamPositions(w http.ResponseWriter, r *http.Request, deviceID int64, checkActive func() bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering; events must reach the browser per tick.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.StreamViewers.Inc()
	defer metrics.StreamViewers.Dec()

	logger := logging.Ctx(r.Context())
	logger.Debug().Int64("device_id", deviceID).Msg("Viewer stream opened")
	defer logger.Debug().Int64("device_id", deviceID).Msg("Viewer stream closed")

	// Watermark of the last fixTime sent to this viewer.
	var lastSent time.Time

	// Immediate initial send so a joining viewer does not stare at an empty
	// map for up to one tick.
	if fix, found := h.cache.Get(deviceID); found {
		if err := writeSSE(w, flusher, "position", h.toDTO(fix)); err != nil {
			return
		}
		lastSent = fix.FixTime
	}

	ticker := time.NewTicker(streamTick)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if checkActive != nil && !checkActive() {
				// Terminal event; the browser should stop reconnecting.
				_ = writeSSE(w, flusher, "expired", errorBody{Error: "TOKEN_EXPIRED"})
				return
			}

			if h.cache.State() != live.FeedOK {
				if err := writeSSE(w, flusher, "status", map[string]string{"state": "reconnecting"}); err != nil {
					return
				}
				continue
			}

			fix, found := h.cache.Get(deviceID)
			if !found || !fix.FixTime.After(lastSent) {
				continue
			}
			if err := writeSSE(w, flusher, "position", h.toDTO(fix)); err != nil {
				return
			}
			lastSent = fix.FixTime
		}
	}
}

// writeSSE writes one named event and flushes it to the client.
func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	flusher.Flush()
	metrics.StreamEventsSent.WithLabelValues(event).Inc()
	return nil
}
