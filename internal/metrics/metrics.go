// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed Session Metrics
	FeedPositionsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_positions_received_total",
			Help: "Total number of position records ingested from the upstream feed",
		},
	)

	FeedFramesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_frames_skipped_total",
			Help: "Total number of feed frames or records skipped",
		},
		[]string{"reason"}, // "malformed", "no_positions", "bad_record"
	)

	FeedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of feed reconnect attempts",
		},
	)

	FeedLoginFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_login_failures_total",
			Help: "Total number of rejected upstream login attempts",
		},
	)

	FeedState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_state",
			Help: "Upstream feed state (0=ok, 1=reconnecting, 2=down)",
		},
	)

	FeedBackoffSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_backoff_seconds",
			Help: "Current reconnect backoff delay in seconds",
		},
	)

	// Mirror Link Metrics
	MirrorLinksIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_links_issued_total",
			Help: "Total number of mirror links issued",
		},
	)

	MirrorLinksRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_links_revoked_total",
			Help: "Total number of mirror links revoked",
		},
	)

	MirrorLinksExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_links_expired_total",
			Help: "Total number of expired mirror links removed by cleanup",
		},
	)

	MirrorTokenRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirror_token_rejections_total",
			Help: "Total number of requests rejected for an inactive or unknown token",
		},
	)

	// SSE Stream Metrics
	StreamViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_viewers",
			Help: "Current number of connected SSE viewers",
		},
	)

	StreamEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_events_sent_total",
			Help: "Total number of SSE events written to viewers",
		},
		[]string{"event"}, // "position", "status", "expired"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Upstream REST Metrics
	TraccarRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traccar_request_duration_seconds",
			Help:    "Duration of Traccar REST calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "login", "route", "device_create", "device_delete", "device_list"
	)

	TraccarRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traccar_request_errors_total",
			Help: "Total number of failed Traccar REST calls",
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest records metrics for a completed HTTP request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTraccarRequest records a completed upstream REST call.
func RecordTraccarRequest(operation string, duration time.Duration, err error) {
	TraccarRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		TraccarRequestErrors.WithLabelValues(operation).Inc()
	}
}

// SetFeedState publishes the feed state gauge.
// The numeric mapping matches live.FeedState ordering.
func SetFeedState(state int) {
	FeedState.Set(float64(state))
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
