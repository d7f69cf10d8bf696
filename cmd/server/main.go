// Enlace - Live GPS Mirror for Traccar
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/enlace

// Package main is the entry point for the Enlace server.
//
// Enlace mirrors live GPS positions from a Traccar server to shareable,
// expiring browser links. The server initializes components in order:
//
//  1. Configuration: layered defaults, config file and environment (Koanf v2)
//  2. Store: BadgerDB for mirror links and device stubs
//  3. Feed: authenticated Traccar WebSocket feed into the position cache
//  4. HTTP server: admin API, public mirror API and SSE streams
//
// All long-running components run under a suture supervisor tree, so a
// crashing feed reconnects on its own while the API keeps serving cached
// positions.
//
// # Configuration
//
// Settings are loaded via Koanf v2 with layered sources (highest wins):
//   - Environment variables (TRACCAR_BASE_URL, TRACCAR_EMAIL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops accepting
// connections, in-flight requests get 10s to finish, then the feed and the
// store are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/enlace/internal/api"
	"github.com/tomtom215/enlace/internal/config"
	"github.com/tomtom215/enlace/internal/live"
	"github.com/tomtom215/enlace/internal/logging"
	"github.com/tomtom215/enlace/internal/mirror"
	"github.com/tomtom215/enlace/internal/supervisor"
	"github.com/tomtom215/enlace/internal/supervisor/services"
	"github.com/tomtom215/enlace/internal/traccar"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("traccar_url", cfg.Traccar.BaseURL).
		Str("store_path", cfg.Store.Path).
		Dur("link_ttl", cfg.Mirror.DefaultTTL).
		Msg("Starting Enlace")

	if cfg.Traccar.ClockOffset != 0 {
		logging.Warn().
			Dur("clock_offset", cfg.Traccar.ClockOffset).
			Msg("Compensating for upstream clock skew")
	}

	db, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	cache := live.NewCache()
	client := traccar.NewClient(cfg.Traccar)
	feed := traccar.NewFeed(client, cache, cfg.Traccar)
	mirrorSvc := mirror.NewService(mirror.NewStore(db), cache, cfg.Mirror)

	handler := api.NewHandler(cfg, cache, mirrorSvc, client)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIngestService(feed)
	tree.AddMaintenanceService(services.NewCleanupService(mirrorSvc))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Hot-reload logging settings when the config file changes. Connection
	// settings stay fixed for the process lifetime.
	if path := config.FindConfigFile(); path != "" {
		if err := config.WatchConfigFile(path, func() {
			newCfg, err := config.Load()
			if err != nil {
				logging.Warn().Err(err).Msg("Config reload failed, keeping current settings")
				return
			}
			logging.Init(logging.Config{
				Level:  newCfg.Logging.Level,
				Format: newCfg.Logging.Format,
				Caller: newCfg.Logging.Caller,
			})
			logging.Info().Str("path", path).Msg("Logging settings reloaded")
		}); err != nil {
			logging.Warn().Err(err).Msg("Config file watch unavailable")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped gracefully")
}

// openStore opens the BadgerDB backing the link registry. In-memory mode is
// for development and tests only; links do not survive a restart.
func openStore(cfg *config.Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Store.Path).WithLogger(nil)
	if cfg.Store.InMemory {
		logging.Warn().Msg("Store is in-memory; mirror links will not survive restarts")
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	return badger.Open(opts)
}
