// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

// Package live holds the latest-known position per device and the health of
// the upstream feed that produces them. The cache is last-write-wins by
// arrival order and never drops entries; staleness is a presentation flag
// computed at read time, not an eviction policy.
package live
