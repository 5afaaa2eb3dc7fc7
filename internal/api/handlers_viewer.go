// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skylab-edu/cosmicwatch/internal/histogram"
	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/store"
)

// Files handles GET /api/files/{id}: the identifier's config plus its
// day-files, newest first.
func (h *Handler) Files(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cfg, files, err := h.store.ListFiles(id)
	if err != nil {
		if errors.Is(err, store.ErrIdentifierNotFound) || errors.Is(err, store.ErrInvalidIdentifier) {
			respondError(w, http.StatusNotFound, "ID not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to list files", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config": cfg,
		"files":  files,
	})
}

// Data handles GET /api/data/{id}/{filename}: the full parsed contents of
// one day-file.
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")

	readings, err := h.store.ReadFile(id, filename)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "File not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to read data file", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  readings,
		"count": len(readings),
	})
}

// Stats handles GET /api/stats/{id}/{filename}: the derived view the
// dashboard plots — per-minute event counts, the amplitude distribution,
// and summary statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")

	readings, err := h.store.ReadFile(id, filename)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "File not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to read data file", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"time_histogram": histogram.TimeHistogram(readings),
		"adc_histogram":  histogram.AmplitudeHistogram(readings),
		"stats":          histogram.Statistics(readings),
	})
}

// Download handles GET /api/download/{id}/{filename}: streams a day-file as
// an attachment named {id}_{filename}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	filename := chi.URLParam(r, "filename")

	f, size, err := h.store.Open(id, filename)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, "File not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to read data file", err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("failed to close download stream")
		}
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"_"+filename))
	if _, err := io.Copy(w, f); err != nil {
		logging.Error().Err(err).Msg("failed to stream download")
	}
}

// isNotFound collapses the store's not-found and invalid-path errors: both
// present as 404 to the client, hiding path probing results.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrFileNotFound) ||
		errors.Is(err, store.ErrIdentifierNotFound) ||
		errors.Is(err, store.ErrInvalidIdentifier) ||
		errors.Is(err, store.ErrInvalidFilename)
}
