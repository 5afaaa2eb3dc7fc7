// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package api implements the REST surface: device authentication and
// ingestion endpoints, the viewer endpoints the dashboard calls, and the
// WebSocket upgrade for live readings.
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/skylab-edu/cosmicwatch/internal/auth"
	"github.com/skylab-edu/cosmicwatch/internal/config"
	"github.com/skylab-edu/cosmicwatch/internal/store"
	"github.com/skylab-edu/cosmicwatch/internal/websocket"
)

// Handler bundles the dependencies of all HTTP handlers.
type Handler struct {
	cfg       *config.Config
	authSvc   *auth.Service
	authMW    *auth.Middleware
	store     *store.Store
	hub       *websocket.Hub
	validate  *validator.Validate
	startTime time.Time
}

// NewHandler wires a Handler. hub may be nil in tests that do not exercise
// the WebSocket path.
func NewHandler(cfg *config.Config, authSvc *auth.Service, authMW *auth.Middleware, st *store.Store, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		authSvc:   authSvc,
		authMW:    authMW,
		store:     st,
		hub:       hub,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		startTime: time.Now(),
	}
}
