// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package traccar talks to the upstream Traccar server.

Client is the REST side: session login (form POST, JSESSIONID cookie),
route reports and device management. Feed is the realtime side: a WebSocket
session over /api/socket that ingests position frames into the live cache.

# Feed Lifecycle

The feed runs for the process lifetime under the supervisor. Each cycle
logs in, dials the socket with the session cookie, writes keepalive pings
and reads frames until the connection dies. Failures never escape the feed;
they set the cache's feed state (RECONNECTING, or DOWN on rejected
credentials) and schedule a retry.

The retry delay doubles per consecutive failure from the configured initial
value up to the ceiling, and resets once a session streams successfully
again.

# Frame Handling

Traccar multiplexes devices, positions and events over one socket; only
position frames are consumed. Records with a zero device ID, non-finite
coordinates or an unparseable fixTime are skipped without aborting the
session. Speed arrives in knots and is stored in km/h.
*/
package traccar
