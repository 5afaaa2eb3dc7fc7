// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package api

import (
	"errors"
	"net/http"

	"github.com/skylab-edu/cosmicwatch/internal/auth"
	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/metrics"
	"github.com/skylab-edu/cosmicwatch/internal/models"
)

type loginRequest struct {
	ID       string `json:"id"       validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	ID           string            `json:"id"       validate:"required"`
	Password     string            `json:"password" validate:"required"`
	Comment      string            `json:"comment"`
	GPSLatitude  *models.FlexValue `json:"gps_latitude"`
	GPSLongitude *models.FlexValue `json:"gps_longitude"`
}

type refreshRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type authResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token,omitempty"`
	User    models.PublicUser `json:"user"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "ID and password are required", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "ID and password are required", nil)
		return
	}

	token, user, err := h.authSvc.Login(req.ID, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordAuthFailure("invalid_credentials")
			logging.Warn().Str("user_id", sanitizeLogValue(req.ID)).Msg("failed login attempt")
			respondError(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   token,
		User:    user.Public(),
	})
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "ID and password are required", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "ID and password are required", nil)
		return
	}

	profile := auth.Profile{
		Comment:      req.Comment,
		GPSLatitude:  flexPtr(req.GPSLatitude),
		GPSLongitude: flexPtr(req.GPSLongitude),
	}

	user, err := h.authSvc.Register(req.ID, req.Password, profile)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondError(w, http.StatusConflict, "User ID already exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	logging.Info().Str("user_id", sanitizeLogValue(user.ID)).Msg("user registered")
	respondJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "User registered successfully",
		User:    user.Public(),
	})
}

// Verify handles GET /auth/verify and its alias GET /auth/validate. The
// authentication middleware has already rejected missing or invalid tokens.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "Access token required", nil)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{
		Success: true,
		User:    models.PublicUser{ID: claims.UserID, Role: claims.Role},
	})
}

// Refresh handles POST /auth/refresh. It issues a fresh token for a known
// user id without a password proof, preserving the contract the deployed
// device fleet depends on; attempts are logged for audit.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "User ID is required", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "User ID is required", nil)
		return
	}

	token, user, err := h.authSvc.Refresh(req.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			metrics.RecordAuthFailure("refresh_unknown_user")
			respondError(w, http.StatusUnauthorized, "User not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   token,
		User:    user.Public(),
	})
}

// flexPtr converts an optional flexible field to the store's nullable form.
func flexPtr(v *models.FlexValue) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
