// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package live

import (
	"sync"
	"testing"
	"time"
)

func fixAt(deviceID int64, t time.Time) Fix {
	return Fix{
		DeviceID: deviceID,
		Lat:      52.52,
		Lon:      13.405,
		FixTime:  t,
	}
}

// TestCache_StartsEmptyReconnecting verifies the initial cache state.
func TestCache_StartsEmptyReconnecting(t *testing.T) {
	t.Parallel()

	c := NewCache()

	if c.State() != FeedReconnecting {
		t.Errorf("Expected initial state reconnecting, got %s", c.State())
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
	if _, ok := c.Get(42); ok {
		t.Error("Expected no fix for unknown device")
	}
}

// TestCache_UpsertMarksFeedOK verifies a stored fix flips the feed state.
func TestCache_UpsertMarksFeedOK(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.SetState(FeedDown)

	c.Upsert(fixAt(1, time.Now()))

	if c.State() != FeedOK {
		t.Errorf("Expected state ok after upsert, got %s", c.State())
	}
}

// TestCache_LastWriteWinsByArrival verifies no timestamp ordering is applied:
// a later arrival with an older fixTime still replaces the entry.
func TestCache_LastWriteWinsByArrival(t *testing.T) {
	t.Parallel()

	c := NewCache()
	newer := fixAt(7, time.Now())
	older := fixAt(7, time.Now().Add(-time.Hour))

	c.Upsert(newer)
	c.Upsert(older)

	got, ok := c.Get(7)
	if !ok {
		t.Fatal("Expected fix for device 7")
	}
	if !got.FixTime.Equal(older.FixTime) {
		t.Errorf("Expected last arrival to win, got fixTime %s", got.FixTime)
	}
}

// TestCache_PerDeviceIsolation verifies devices do not overwrite each other.
func TestCache_PerDeviceIsolation(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Upsert(fixAt(1, time.Now()))
	c.Upsert(fixAt(2, time.Now()))

	if c.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", c.Len())
	}
	if f, ok := c.Get(1); !ok || f.DeviceID != 1 {
		t.Errorf("Expected fix for device 1, got %+v (ok=%v)", f, ok)
	}
	if f, ok := c.Get(2); !ok || f.DeviceID != 2 {
		t.Errorf("Expected fix for device 2, got %+v (ok=%v)", f, ok)
	}
}

// TestCache_GetReturnsCopy verifies mutating a returned fix does not affect
// the stored value.
func TestCache_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Upsert(fixAt(3, time.Now()))

	f, _ := c.Get(3)
	f.Lat = -90

	stored, _ := c.Get(3)
	if stored.Lat == -90 {
		t.Error("Expected stored fix to be unaffected by caller mutation")
	}
}

// TestCache_ConcurrentAccess exercises the cache under parallel writers and
// readers; run with -race.
func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewCache()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		deviceID := int64(i % 4)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Upsert(fixAt(deviceID, time.Now()))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(deviceID)
				c.State()
			}
		}()
	}

	wg.Wait()

	if c.Len() != 4 {
		t.Errorf("Expected 4 entries, got %d", c.Len())
	}
}

// TestKnotsToKph verifies the speed conversion factor.
func TestKnotsToKph(t *testing.T) {
	t.Parallel()

	got := KnotsToKph(10)
	if got != 18.52 {
		t.Errorf("Expected 18.52, got %f", got)
	}
	if KnotsToKph(0) != 0 {
		t.Error("Expected zero knots to convert to zero")
	}
}

// TestStaleAt covers the staleness comparison including the clock offset.
func TestStaleAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	staleAfter := 5 * time.Minute

	tests := []struct {
		name        string
		fixTime     time.Time
		clockOffset time.Duration
		want        bool
	}{
		{"fresh fix", now.Add(-1 * time.Minute), 0, false},
		{"exactly at threshold", now.Add(-5 * time.Minute), 0, false},
		{"just past threshold", now.Add(-5*time.Minute - time.Second), 0, true},
		{"old fix", now.Add(-time.Hour), 0, true},
		{"future fix", now.Add(time.Minute), 0, false},
		{"upstream clock behind, offset compensates", now.Add(-8*time.Hour - time.Minute), 8 * time.Hour, false},
		{"upstream clock behind, still stale", now.Add(-8*time.Hour - 10*time.Minute), 8 * time.Hour, true},
		{"negative offset ages the fix", now.Add(-4 * time.Minute), -2 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := staleAt(tt.fixTime, staleAfter, tt.clockOffset, now); got != tt.want {
				t.Errorf("staleAt(%s, offset %s) = %v, want %v",
					tt.fixTime, tt.clockOffset, got, tt.want)
			}
		})
	}
}
