// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package live

import "sync"

// FeedState is the health of the upstream position feed.
type FeedState int32

const (
	// FeedOK means the feed is streaming and the cache is being updated.
	FeedOK FeedState = iota

	// FeedReconnecting means the feed is between attempts; cached fixes
	// are served as-is until it recovers.
	FeedReconnecting

	// FeedDown means the last login attempt was rejected; the cache
	// contents cannot be trusted to converge.
	FeedDown
)

// String returns the lowercase wire name of the state.
func (s FeedState) String() string {
	switch s {
	case FeedOK:
		return "ok"
	case FeedReconnecting:
		return "reconnecting"
	case FeedDown:
		return "down"
	default:
		return "unknown"
	}
}

// Cache is a thread-safe latest-position store keyed by device ID, plus the
// feed state. Entries never expire; a newer fix for the same device replaces
// the older one in arrival order, with no timestamp comparison.
//
// Reads return a copy of the stored Fix, so a reader can never observe a
// partially written value.
type Cache struct {
	mu     sync.RWMutex
	latest map[int64]Fix
	state  FeedState
}

// NewCache creates an empty cache. The feed state starts as reconnecting
// because no connection attempt has completed yet.
func NewCache() *Cache {
	return &Cache{
		latest: make(map[int64]Fix),
		state:  FeedReconnecting,
	}
}

// Upsert stores the fix as the latest for its device and marks the feed OK.
// Last write wins by arrival order.
func (c *Cache) Upsert(f Fix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest[f.DeviceID] = f
	c.state = FeedOK
}

// Get returns a copy of the latest fix for the device, if one exists.
func (c *Cache) Get(deviceID int64) (Fix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.latest[deviceID]
	return f, ok
}

// SetState records the feed health.
func (c *Cache) SetState(s FeedState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current feed health.
func (c *Cache) State() FeedState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Len returns the number of devices with a cached fix.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.latest)
}
