// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package userstore persists user accounts in a single flat JSON file.
//
// The file holds `{"users": [...]}` and is rewritten wholesale on every
// mutation. A process-local mutex serializes writers; the store assumes it is
// the only process writing the file (single-admin deployment). Expected
// account counts are tens, not thousands, so whole-file rewrites are fine.
package userstore

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/skylab-edu/cosmicwatch/internal/models"
)

// Sentinel errors returned by the store.
var (
	// ErrUserExists indicates a registration attempt with a taken id.
	ErrUserExists = errors.New("user id already exists")

	// ErrUserNotFound indicates the requested id has no account.
	ErrUserNotFound = errors.New("user not found")
)

// fileDocument is the on-disk shape of the users file.
type fileDocument struct {
	Users []models.User `json:"users"`
}

// Store is a flat-file user store.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store backed by the given file path. The file does not need
// to exist yet; it is created on the first mutation.
func New(path string) *Store {
	return &Store{path: path}
}

// load reads the users file. A missing file yields an empty document; a
// malformed file is an error so that a corrupted store is never silently
// overwritten with an empty one.
func (s *Store) load() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileDocument{Users: []models.User{}}, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	doc := &fileDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	if doc.Users == nil {
		doc.Users = []models.User{}
	}
	return doc, nil
}

// save writes the document back. Written via a temp file and rename so a
// crash mid-write cannot truncate the store.
func (s *Store) save(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}

// Find returns the user with the given id, or ErrUserNotFound.
func (s *Store) Find(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			u := doc.Users[i]
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// Create appends a new user. Returns ErrUserExists when the id is taken.
func (s *Store) Create(user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == user.ID {
			return ErrUserExists
		}
	}
	doc.Users = append(doc.Users, user)
	return s.save(doc)
}

// TouchLastLogin stamps the user's last_login with the current time in
// RFC 3339 form. Missing users are ErrUserNotFound.
func (s *Store) TouchLastLogin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			now := time.Now().UTC().Format(time.RFC3339)
			doc.Users[i].LastLogin = &now
			return s.save(doc)
		}
	}
	return ErrUserNotFound
}

// All returns every user record. Used by operator tooling, not handlers.
func (s *Store) All() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	users := make([]models.User, len(doc.Users))
	copy(users, doc.Users)
	return users, nil
}
