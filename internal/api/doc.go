// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package api provides the HTTP surface: the admin endpoints, the public
mirror endpoints and the SSE stream publisher.

# Routes

Admin (operator-facing):

	GET    /api/admin/live?deviceId=      latest fix (200 | 204 | 503)
	GET    /api/admin/live/stream         SSE position stream
	GET    /api/admin/trail?deviceId=     upstream route pass-through
	POST   /api/admin/devices             create device upstream
	GET    /api/admin/devices             list devices
	DELETE /api/admin/devices/{id}        delete device

Mirror (public, token-gated):

	POST   /api/mirror                    issue a link (201 {token,url,expiresAt})
	GET    /api/mirror/{token}/latest     latest fix (200 | 204 | 410)
	GET    /api/mirror/{token}/trail      trail behind a token
	GET    /api/mirror/{token}/stream     SSE stream behind a token
	DELETE /api/mirror/{token}            revoke

Plus GET /api/health and the Prometheus /metrics endpoint, both outside the
rate limiter.

# Error Bodies

Errors are {"error":"CODE"} with codes the browser client switches on:
FEED_DOWN (503), TOKEN_EXPIRED_OR_INVALID (410), TRACCAR_ROUTE_FAILED (502).
Any unusable mirror token answers the same 410, whether it is unknown,
expired or revoked.

# Streaming

Each SSE viewer gets an immediate initial position if one is cached, then a
2-second tick. Per tick: token re-check (inactive means a terminal expired
event), feed health (not OK means a status event), then a position event
only when the cached fix is strictly newer than the last one sent to that
viewer. Silence on a tick is deliberate.
*/
package api
