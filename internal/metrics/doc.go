// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package metrics provides Prometheus metrics collection and export.

All collectors are registered at package load through promauto and exposed
at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Feed metrics:
  - enlace_feed_positions_received_total: positions ingested (counter)
  - enlace_feed_frames_skipped_total: unusable frames (counter)
    Labels: reason (malformed, no_positions, bad_record)
  - enlace_feed_reconnects_total: reconnect attempts (counter)
  - enlace_feed_login_failures_total: rejected logins (counter)
  - enlace_feed_state: feed health (gauge)
    Values: 0=ok, 1=reconnecting, 2=down
  - enlace_feed_backoff_seconds: current reconnect delay (gauge)

Mirror metrics:
  - enlace_mirror_links_issued_total / _revoked_total / _expired_total
  - enlace_mirror_token_rejections_total: unusable token lookups (counter)

Stream metrics:
  - enlace_stream_viewers: connected SSE viewers (gauge)
  - enlace_stream_events_sent_total: events written (counter)
    Labels: event (position, status, expired)

HTTP metrics:
  - enlace_api_requests_total, enlace_api_request_duration_seconds,
    enlace_api_active_requests

Upstream metrics:
  - enlace_traccar_request_duration_seconds, enlace_traccar_request_errors_total
    Labels: operation (login, route, device_create, device_delete, device_list)

# Thread Safety

All recording functions are safe for concurrent use; the Prometheus client
library handles synchronization internally.

# See Also

  - internal/middleware: HTTP middleware recording the request metrics
  - internal/traccar: feed and upstream client instrumentation
*/
package metrics
