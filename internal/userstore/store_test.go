// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package userstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skylab-edu/cosmicwatch/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "users.json"))
}

func testUser(id string) models.User {
	return models.User{
		ID:           id,
		PasswordHash: "$2b$10$fakehashfakehashfakehash",
		Role:         models.RoleUser,
		Comment:      "test",
		CreatedAt:    "2025-06-16T00:00:00Z",
	}
}

func TestFindOnMissingFile(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Find("anyone"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Find on missing file = %v, want ErrUserNotFound", err)
	}
}

func TestCreateAndFind(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(testUser("alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Find("alice")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.ID != "alice" || got.Role != models.RoleUser {
		t.Errorf("Find = %+v", got)
	}
	if got.LastLogin != nil {
		t.Errorf("new user should have no last_login, got %v", *got.LastLogin)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(testUser("alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(testUser("alice")); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate Create = %v, want ErrUserExists", err)
	}
}

func TestTouchLastLogin(t *testing.T) {
	s := newTestStore(t)
	if err := s.Create(testUser("alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.TouchLastLogin("alice"); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}

	got, err := s.Find("alice")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.LastLogin == nil || *got.LastLogin == "" {
		t.Error("TouchLastLogin should record a timestamp")
	}
}

func TestTouchLastLoginUnknownUser(t *testing.T) {
	s := newTestStore(t)
	if err := s.TouchLastLogin("ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("TouchLastLogin(ghost) = %v, want ErrUserNotFound", err)
	}
}

func TestFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	s := New(path)
	if err := s.Create(testUser("alice")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// The on-disk document wraps the records: {"users": [...]}.
	if !strings.Contains(string(data), `"users"`) {
		t.Errorf("users.json should use the users wrapper, got: %s", data)
	}
	if !strings.Contains(string(data), `"password_hash"`) {
		t.Errorf("user records should persist password_hash, got: %s", data)
	}
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	s := New(path)
	if _, err := s.Find("anyone"); err == nil || errors.Is(err, ErrUserNotFound) {
		t.Errorf("malformed file should surface a parse error, got %v", err)
	}
}

func TestAll(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"alice", "bob"} {
		if err := s.Create(testUser(id)); err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}

	users, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("All returned %d users, want 2", len(users))
	}
}
