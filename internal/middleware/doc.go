// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package middleware provides HTTP middleware shared by all routes.

RequestID tags each request with an X-Request-ID (honoring one supplied by
the caller) and threads it through the context so every log line carries it.
PrometheusMetrics records request count, latency and the in-flight gauge;
its response wrapper forwards Flush so SSE responses stream through intact.

Both middlewares are plain func(http.Handler) http.Handler and compose with
the chi stock middleware in internal/api.
*/
package middleware
