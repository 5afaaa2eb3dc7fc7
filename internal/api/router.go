// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skylab-edu/cosmicwatch/internal/middleware"
)

// NewRouter assembles the route table. The paths are the ones the deployed
// detector fleet already calls; they are part of the wire contract and must
// not change shape.
func (h *Handler) NewRouter(staticFS fs.FS) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Prometheus)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(&h.cfg.Security))
	r.Use(rateLimitMiddleware(&h.cfg.Security))

	// Authentication. /auth/validate is an alias some firmware revisions
	// call instead of /auth/verify.
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(loginRateLimitMiddleware(&h.cfg.Security))
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
			r.Post("/refresh", h.Refresh)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.authMW.Authenticate)
			r.Get("/verify", h.Verify)
			r.Get("/validate", h.Verify)
		})
	})

	// Device endpoints.
	r.Group(func(r chi.Router) {
		r.Use(h.authMW.Authenticate)
		r.Post("/setup-id", h.SetupID)
		r.Post("/upload-data/{id}", h.UploadData)
	})
	r.Get("/check-id/{id}", h.CheckID)
	r.Get("/latest-data/{id}", h.LatestData)
	r.Get("/list-ids", h.ListIDs)

	// Viewer endpoints.
	r.Route("/api", func(r chi.Router) {
		r.Get("/files/{id}", h.Files)
		r.Get("/data/{id}/{filename}", h.Data)
		r.Get("/stats/{id}/{filename}", h.Stats)
		r.Get("/download/{id}/{filename}", h.Download)
		r.Get("/ws", h.WebSocket)
	})

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Embedded dashboard.
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		r.Get("/viewer", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
		})
		r.Handle("/*", fileServer)
	}

	return r
}
