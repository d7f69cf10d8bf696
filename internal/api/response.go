// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/enlace/internal/logging"
)

// Wire error codes. These bodies are part of the public contract; browser
// clients switch on the code string.
const (
	ErrCodeFeedDown     = "FEED_DOWN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED_OR_INVALID"
	ErrCodeRouteFailed  = "TRACCAR_ROUTE_FAILED"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUpstreamFail = "TRACCAR_DEVICE_FAILED"
)

// errorBody is the uniform error payload: {"error":"CODE"}.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError sends the uniform error body for the given code.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorBody{Error: code})
}

// writeNoContent sends a bodyless 204.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
