// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

/*
Package logging provides centralized zerolog-based logging for Enlace.

All components log through the global logger configured here:

	logging.Init(logging.Config{Level: "info", Format: "json"})

	logging.Info().Msg("Server starting")
	logging.Error().Err(err).Msg("Operation failed")

	// With context (request ID propagation)
	logging.Ctx(ctx).Info().Int64("device_id", id).Msg("Fix received")

Long-lived components take a component-tagged child logger once at
construction:

	logger := logging.WithComponent("feed")

NewSlogLogger bridges the global logger into log/slog for libraries that
require an *slog.Logger (sutureslog).

Always terminate log chains with .Msg() or .Send(); a chain without a
terminator is never emitted.
*/
package logging
