// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skylab-edu/cosmicwatch/internal/auth"
	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/models"
	"github.com/skylab-edu/cosmicwatch/internal/store"
)

type setupIDRequest struct {
	ID           string            `json:"id" validate:"required"`
	Comment      string            `json:"comment"`
	GPSLatitude  *models.FlexValue `json:"gps_latitude"`
	GPSLongitude *models.FlexValue `json:"gps_longitude"`
	CreatedAt    string            `json:"created_at"`
}

type uploadRequest struct {
	Timestamp models.FlexValue `json:"timestamp"`
	ADC       models.FlexValue `json:"adc"`
	Vol       models.FlexValue `json:"vol"`
	Deadtime  models.FlexValue `json:"deadtime"`
}

// SetupID handles POST /setup-id: creates or re-creates an identifier
// directory and its config document.
func (h *Handler) SetupID(w http.ResponseWriter, r *http.Request) {
	var req setupIDRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "ID is required", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "ID is required", nil)
		return
	}

	cfg, err := h.store.Setup(models.MeasurementConfig{
		ID:           req.ID,
		Comment:      req.Comment,
		GPSLatitude:  flexString(req.GPSLatitude),
		GPSLongitude: flexString(req.GPSLongitude),
		CreatedAt:    req.CreatedAt,
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidIdentifier) {
			respondError(w, http.StatusBadRequest, "ID is required", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to setup ID", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastJSON("identifier_setup", cfg)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("ID directory created: %s", cfg.ID),
		"config":  cfg,
	})
}

// CheckID handles GET /check-id/{id}: reports whether the identifier has
// been set up. Never errors toward the device; a broken config reports
// exists=false with a diagnostic so the device re-runs setup.
func (h *Handler) CheckID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	exists, cfg, err := h.store.Check(id)
	if err != nil && !errors.Is(err, store.ErrInvalidIdentifier) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"exists": false,
			"error":  "Invalid config file",
		})
		return
	}
	if !exists || cfg == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"exists": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exists": true,
		"config": cfg,
	})
}

// UploadData handles POST /upload-data/{id}: appends one reading to the
// identifier's current day-file. A user may only upload to their own
// identifier; admins may upload anywhere.
func (h *Handler) UploadData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}
	if claims.UserID != id && claims.Role != models.RoleAdmin {
		respondError(w, http.StatusForbidden, "Access denied: can only upload to your own ID", nil)
		return
	}

	var req uploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing required data", nil)
		return
	}
	if req.Timestamp == "" || req.ADC == "" || req.Vol == "" || req.Deadtime == "" {
		respondError(w, http.StatusBadRequest, "Missing required data", nil)
		return
	}

	reading := models.Reading{
		Timestamp: req.Timestamp.String(),
		ADC:       req.ADC.String(),
		Vol:       req.Vol.String(),
		Deadtime:  req.Deadtime.String(),
	}

	if err := h.store.Append(id, reading); err != nil {
		switch {
		case errors.Is(err, store.ErrIdentifierNotFound):
			respondError(w, http.StatusNotFound, "ID directory not found", nil)
		case errors.Is(err, store.ErrInvalidIdentifier):
			respondError(w, http.StatusNotFound, "ID directory not found", nil)
		default:
			respondError(w, http.StatusInternalServerError, "Failed to save data", err)
		}
		return
	}

	logging.Debug().
		Str("identifier", sanitizeLogValue(id)).
		Str("timestamp", sanitizeLogValue(reading.Timestamp)).
		Msg("reading ingested")

	if h.hub != nil {
		h.hub.BroadcastReading(id, reading)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Data uploaded successfully",
	})
}

// LatestData handles GET /latest-data/{id}: the last 10 readings of the
// current day's file, for polling displays.
func (h *Handler) LatestData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	readings, err := h.store.LatestReadings(id, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrIdentifierNotFound) || errors.Is(err, store.ErrInvalidIdentifier) {
			respondError(w, http.StatusNotFound, "ID not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": readings})
}

// ListIDs handles GET /list-ids: all identifiers with their configs when
// readable.
func (h *Handler) ListIDs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListIdentifiers()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list IDs", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"ids": entries})
}

// flexString converts an optional flexible field to its textual form.
func flexString(v *models.FlexValue) string {
	if v == nil {
		return ""
	}
	return v.String()
}
