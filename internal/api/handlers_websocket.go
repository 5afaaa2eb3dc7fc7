// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package api

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is same-origin; cross-origin upgrades are governed by
	// the CORS configuration at the router level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket handles GET /api/ws: upgrades the connection and registers the
// client with the hub, which pushes each ingested reading.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "WebSocket is not available", nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
