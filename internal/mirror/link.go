// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package mirror

import "time"

// Link is one issued mirror link. The token is the sole credential; anyone
// holding it sees the referenced device until the link expires or is revoked.
type Link struct {
	Token     string     `json:"token"`
	DeviceID  int64      `json:"deviceId"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`

	// ViewCount is persisted for future accounting but not incremented by
	// read paths.
	ViewCount int `json:"viewCount"`
}

// IsActive reports whether the link grants access at the given instant.
// Unknown, expired and revoked links are indistinguishable to callers; they
// all resolve to inactive.
func (l Link) IsActive(now time.Time) bool {
	return l.RevokedAt == nil && l.ExpiresAt.After(now)
}

// Device is a local stub describing an upstream Traccar device a mirror link
// may point at. Stubs are created on demand at issuance.
type Device struct {
	ID              int64     `json:"id"`
	TraccarDeviceID int64     `json:"traccarDeviceId"`
	UniqueID        string    `json:"uniqueId"`
	Name            string    `json:"name"`
	UserID          *int64    `json:"userId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
