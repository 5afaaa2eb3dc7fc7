// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package auth

import (
	"testing"
	"time"

	"github.com/skylab-edu/cosmicwatch/internal/config"
	"github.com/skylab-edu/cosmicwatch/internal/models"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "test-secret-key-that-is-long-enough-for-hs256",
		SessionTimeout: 24 * time.Hour,
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewJWTManager with empty secret should fail")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("det01", models.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken returned empty token")
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "det01" {
		t.Errorf("UserID = %q, want det01", claims.UserID)
	}
	if claims.Role != models.RoleUser {
		t.Errorf("Role = %q, want %q", claims.Role, models.RoleUser)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("token must carry an expiry")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Errorf("token lifetime %v, want about 24h", ttl)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "a-different-secret-key-also-long-enough!",
		SessionTimeout: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	foreignToken, err := other.GenerateToken("det01", models.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	expiredMgr, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecurityConfig().JWTSecret,
		SessionTimeout: -time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	expiredToken, err := expiredMgr.GenerateToken("det01", models.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.token"},
		{name: "empty", token: ""},
		{name: "wrong secret", token: foreignToken},
		{name: "expired", token: expiredToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Errorf("ValidateToken(%s) should fail", tt.name)
			}
		})
	}
}
