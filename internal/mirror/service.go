// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/enlace/internal/config"
	"github.com/tomtom215/enlace/internal/live"
	"github.com/tomtom215/enlace/internal/logging"
	"github.com/tomtom215/enlace/internal/metrics"
)

// ErrLinkInactive is returned for tokens that are unknown, expired or
// revoked. The three cases are deliberately indistinguishable so a probing
// caller learns nothing about which tokens ever existed.
var ErrLinkInactive = errors.New("mirror link inactive")

// Service implements the mirror link lifecycle: issuance, resolution,
// revocation and expiry cleanup. Activity is re-evaluated on every
// resolution; a link that expires mid-stream is cut off on the next check.
type Service struct {
	store  *Store
	cache  *live.Cache
	cfg    config.MirrorConfig
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates the mirror service.
func NewService(store *Store, cache *live.Cache, cfg config.MirrorConfig) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logging.WithComponent("mirror"),
		now:    time.Now,
	}
}

// Issue creates a new link for the device. A nil ttlOverride means the
// configured default; an explicit override is honored as given, so a zero
// override mints a link that is already expired. A local device stub is
// created on first issuance so the admin surface can enumerate devices that
// have ever been shared.
func (s *Service) Issue(ctx context.Context, traccarDeviceID int64, ttlOverride *time.Duration) (Link, error) {
	if traccarDeviceID <= 0 {
		return Link{}, fmt.Errorf("device id must be positive, got %d", traccarDeviceID)
	}
	ttl := s.cfg.DefaultTTL
	if ttlOverride != nil {
		ttl = *ttlOverride
	}

	if err := s.ensureDeviceStub(ctx, traccarDeviceID); err != nil {
		return Link{}, err
	}

	token, err := GenerateToken(s.cfg.TokenLength)
	if err != nil {
		return Link{}, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	link := Link{
		Token:     token,
		DeviceID:  traccarDeviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.PutLink(ctx, link); err != nil {
		return Link{}, fmt.Errorf("persist link: %w", err)
	}

	metrics.MirrorLinksIssued.Inc()
	s.logger.Info().
		Int64("device_id", traccarDeviceID).
		Time("expires_at", link.ExpiresAt).
		Msg("Mirror link issued")
	return link, nil
}

// ensureDeviceStub creates the local stub for a device if it does not exist.
func (s *Service) ensureDeviceStub(ctx context.Context, traccarDeviceID int64) error {
	_, err := s.store.GetDeviceByTraccarID(ctx, traccarDeviceID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		return fmt.Errorf("look up device stub: %w", err)
	}

	stub := Device{
		ID:              traccarDeviceID,
		TraccarDeviceID: traccarDeviceID,
		UniqueID:        fmt.Sprintf("traccar-%d", traccarDeviceID),
		Name:            fmt.Sprintf("Device %d", traccarDeviceID),
		CreatedAt:       s.now(),
	}
	if err := s.store.PutDevice(ctx, stub); err != nil {
		return fmt.Errorf("create device stub: %w", err)
	}
	return nil
}

// ResolveActive returns the link for the token if it currently grants
// access. The second return is false for unknown, expired and revoked
// tokens alike.
func (s *Service) ResolveActive(ctx context.Context, token string) (Link, bool) {
	link, err := s.store.GetLink(ctx, token)
	if err != nil {
		metrics.MirrorTokenRejections.Inc()
		return Link{}, false
	}
	if !link.IsActive(s.now()) {
		metrics.MirrorTokenRejections.Inc()
		return Link{}, false
	}
	return link, true
}

// ResolveActiveDeviceID returns the device behind an active token.
func (s *Service) ResolveActiveDeviceID(ctx context.Context, token string) (int64, bool) {
	link, ok := s.ResolveActive(ctx, token)
	if !ok {
		return 0, false
	}
	return link.DeviceID, true
}

// LatestByToken returns the latest cached fix for the device behind an
// active token. The bool is false when the device has no cached fix yet;
// ErrLinkInactive is returned for any unusable token.
func (s *Service) LatestByToken(ctx context.Context, token string) (live.Fix, bool, error) {
	deviceID, ok := s.ResolveActiveDeviceID(ctx, token)
	if !ok {
		return live.Fix{}, false, ErrLinkInactive
	}
	fix, ok := s.cache.Get(deviceID)
	return fix, ok, nil
}

// Revoke marks an active link revoked. Revoking an unknown, expired or
// already revoked token yields ErrLinkInactive.
func (s *Service) Revoke(ctx context.Context, token string) error {
	link, err := s.store.GetLink(ctx, token)
	if err != nil {
		return ErrLinkInactive
	}
	now := s.now()
	if !link.IsActive(now) {
		return ErrLinkInactive
	}

	link.RevokedAt = &now
	if err := s.store.PutLink(ctx, link); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}

	metrics.MirrorLinksRevoked.Inc()
	s.logger.Info().Int64("device_id", link.DeviceID).Msg("Mirror link revoked")
	return nil
}

// DeleteExpired purges links past their expiry and returns the count.
func (s *Service) DeleteExpired(ctx context.Context) (int, error) {
	count, err := s.store.DeleteExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.MirrorLinksExpired.Add(float64(count))
		s.logger.Info().Int("count", count).Msg("Expired mirror links purged")
	}
	return count, nil
}

// RegisterDevice upserts a named device stub, used when the admin surface
// creates a device explicitly rather than relying on the issuance stub.
func (s *Service) RegisterDevice(ctx context.Context, traccarID int64, uniqueID, name string) (Device, error) {
	if traccarID <= 0 {
		return Device{}, fmt.Errorf("device id must be positive, got %d", traccarID)
	}
	dev := Device{
		ID:              traccarID,
		TraccarDeviceID: traccarID,
		UniqueID:        uniqueID,
		Name:            name,
		CreatedAt:       s.now(),
	}
	if err := s.store.PutDevice(ctx, dev); err != nil {
		return Device{}, fmt.Errorf("persist device: %w", err)
	}
	return dev, nil
}

// RemoveDevice deletes the local stub for a device.
func (s *Service) RemoveDevice(ctx context.Context, traccarID int64) error {
	return s.store.DeleteDevice(ctx, traccarID)
}

// Devices lists the local device stubs.
func (s *Service) Devices(ctx context.Context) ([]Device, error) {
	return s.store.ListDevices(ctx)
}

// RunCleanup purges expired links on the configured interval until the
// context is canceled. It satisfies suture.Service.
func (s *Service) RunCleanup(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.DeleteExpired(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Link cleanup failed")
			}
		}
	}
}
