// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/skylab-edu/cosmicwatch/internal/config"
)

// noopMiddleware passes requests through unchanged.
func noopMiddleware(next http.Handler) http.Handler {
	return next
}

// corsMiddleware builds the CORS handler from configuration. Field devices
// and browser dashboards may live on different origins.
func corsMiddleware(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
}

// rateLimitMiddleware is the general per-IP limiter applied to all routes.
func rateLimitMiddleware(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled {
		return noopMiddleware
	}
	requests := cfg.RateLimitRequests
	window := cfg.RateLimitWindow
	if requests <= 0 {
		requests = 300
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(requests, window)
}

// loginRateLimitMiddleware is the tighter limiter on credential endpoints,
// keyed by IP, to slow password guessing.
func loginRateLimitMiddleware(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled {
		return noopMiddleware
	}
	requests := cfg.LoginRateLimitRequests
	window := cfg.LoginRateLimitWindow
	if requests <= 0 {
		requests = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return httprate.Limit(requests, window, httprate.WithKeyFuncs(httprate.KeyByIP))
}
