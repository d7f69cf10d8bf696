// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package live

import "time"

// Fix is a single position report for a device. Values are normalized at
// ingestion (speed in km/h, heading in degrees); a Fix is never mutated after
// construction.
type Fix struct {
	DeviceID   int64     `json:"deviceId"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	SpeedKph   *float64  `json:"speedKph,omitempty"`
	HeadingDeg *float64  `json:"headingDeg,omitempty"`
	FixTime    time.Time `json:"fixTime"`
}

// KnotsToKph converts a speed reported in knots to km/h.
func KnotsToKph(knots float64) float64 {
	return knots * 1.852
}

// IsStale reports whether a fix of the given age should be flagged stale.
// clockOffset compensates for a known constant skew between the upstream
// clock and ours; it is added to the fix timestamp before comparison.
func IsStale(fixTime time.Time, staleAfter, clockOffset time.Duration) bool {
	return staleAt(fixTime, staleAfter, clockOffset, time.Now())
}

// staleAt is the pure comparison behind IsStale, split out for testing
// against a fixed reference time.
func staleAt(fixTime time.Time, staleAfter, clockOffset time.Duration, now time.Time) bool {
	return now.Sub(fixTime.Add(clockOffset)) > staleAfter
}
