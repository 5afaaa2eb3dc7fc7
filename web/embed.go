// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package web embeds the dashboard assets so the server binary is
// self-contained.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFiles embed.FS

// StaticFS returns the dashboard assets rooted at the directory the file
// server expects (index.html at /).
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}
