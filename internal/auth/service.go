// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package auth implements account registration, credential verification, and
// JWT session tokens over the flat-file user store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/models"
	"github.com/skylab-edu/cosmicwatch/internal/userstore"
)

// Sentinel errors returned by the service.
var (
	// ErrInvalidCredentials covers both unknown ids and wrong passwords so
	// login failures do not leak which ids exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists indicates a registration attempt with a taken id.
	ErrUserExists = userstore.ErrUserExists

	// ErrUserNotFound indicates the requested id has no account.
	ErrUserNotFound = userstore.ErrUserNotFound
)

// Profile carries the optional fields supplied at registration.
type Profile struct {
	Comment      string
	GPSLatitude  *string
	GPSLongitude *string
}

// Service implements the auth operations backed by the user store.
type Service struct {
	users      *userstore.Store
	jwt        *JWTManager
	bcryptCost int
}

// NewService creates the auth service. bcryptCost is the bcrypt work factor;
// zero selects bcrypt.DefaultCost.
func NewService(users *userstore.Store, jwt *JWTManager, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, jwt: jwt, bcryptCost: bcryptCost}
}

// Register creates a new account with role "user". Returns ErrUserExists
// when the id is taken.
func (s *Service) Register(id, password string, profile Profile) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           id,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Comment:      profile.Comment,
		GPSLatitude:  profile.GPSLatitude,
		GPSLongitude: profile.GPSLongitude,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		LastLogin:    nil,
	}

	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	logging.Info().Str("user", id).Msg("user registered")
	return &user, nil
}

// Login verifies the password, stamps last_login, and issues a session
// token. Unknown ids and hash mismatches both yield ErrInvalidCredentials.
func (s *Service) Login(id, password string) (string, *models.User, error) {
	user, err := s.users.Find(id)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	// Best effort: a failed last_login stamp should not fail the login.
	if err := s.users.TouchLastLogin(id); err != nil {
		logging.Warn().Err(err).Str("user", id).Msg("failed to update last_login")
	}

	logging.Info().Str("user", id).Str("role", user.Role).Msg("user logged in")
	return token, user, nil
}

// Refresh issues a fresh token for a known id without re-checking the
// password or a prior token. This mirrors the device provisioning flow the
// field loggers rely on, but it means possession of an id is enough to mint
// a session; callers log the request so operators can audit uses.
func (s *Service) Refresh(id string) (string, *models.User, error) {
	user, err := s.users.Find(id)
	if err != nil {
		return "", nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Verify validates a token string and returns its claims.
func (s *Service) Verify(token string) (*Claims, error) {
	return s.jwt.ValidateToken(token)
}
