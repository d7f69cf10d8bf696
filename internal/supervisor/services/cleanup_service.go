// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

package services

import (
	"context"
)

// CleanupRunner matches the mirror service's cleanup loop, which blocks
// until its context is canceled.
type CleanupRunner interface {
	RunCleanup(ctx context.Context) error
}

// CleanupService runs the expired link sweep as a supervised service.
type CleanupService struct {
	runner CleanupRunner
}

// NewCleanupService creates the wrapper.
func NewCleanupService(runner CleanupRunner) *CleanupService {
	return &CleanupService{runner: runner}
}

// Serve implements suture.Service.
func (c *CleanupService) Serve(ctx context.Context) error {
	return c.runner.RunCleanup(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (c *CleanupService) String() string {
	return "link-cleanup"
}
