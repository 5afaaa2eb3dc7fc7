// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package main is the entry point for the CosmicWatch server.
//
// CosmicWatch collects readings from a fleet of cosmic-ray detectors.
// Field devices register an account, set up a measurement identifier, and
// upload tab-separated readings; operators browse, visualize, and download
// the accumulated day-files through a map-centric dashboard embedded in the
// binary.
//
// The server initializes in this order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml, env)
//  2. Stores: flat-file user store plus the per-identifier measurement store
//  3. Authentication: bcrypt password hashing, HS256 JWT sessions
//  4. WebSocket hub: live reading broadcast to open dashboards
//  5. HTTP server: the device and viewer REST API plus embedded assets
//
// The hub and the HTTP server run under a suture supervision tree and shut
// down gracefully on SIGINT/SIGTERM.
//
// Required environment:
//   - JWT_SECRET: 32+ character secret for token signing
//
// Common overrides: PORT, DATA_DIR, USERS_FILE, LOG_LEVEL, LOG_FORMAT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skylab-edu/cosmicwatch/internal/api"
	"github.com/skylab-edu/cosmicwatch/internal/auth"
	"github.com/skylab-edu/cosmicwatch/internal/config"
	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/store"
	"github.com/skylab-edu/cosmicwatch/internal/supervisor"
	"github.com/skylab-edu/cosmicwatch/internal/userstore"
	ws "github.com/skylab-edu/cosmicwatch/internal/websocket"
	"github.com/skylab-edu/cosmicwatch/web"
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
		Str("data_dir", cfg.Storage.DataDir).
		Str("users_file", cfg.Storage.UsersFile).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting CosmicWatch")

	measurements, err := store.New(cfg.Storage.DataDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize measurement store")
	}
	users := userstore.New(cfg.Storage.UsersFile)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authSvc := auth.NewService(users, jwtManager, cfg.Security.BcryptCost)
	authMW := auth.NewMiddleware(jwtManager)

	hub := ws.NewHub()
	handler := api.NewHandler(cfg, authSvc, authMW, measurements, hub)

	staticFS, err := web.StaticFS()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load embedded dashboard assets")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.NewRouter(staticFS),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddMessagingService(supervisor.NewWebSocketHubService(hub))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

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

	logging.Info().Msg("Server stopped gracefully")
}
