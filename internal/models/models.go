// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package models defines the domain types shared between the stores,
// the API handlers, and the histogram computation.
package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Roles assigned to user accounts. A detector account may only upload to its
// own identifier; admins may upload anywhere.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is one record in the flat users.json store. The id doubles as the
// measurement identifier the account is allowed to upload to.
type User struct {
	ID           string  `json:"id"`
	PasswordHash string  `json:"password_hash"`
	Role         string  `json:"role"`
	Comment      string  `json:"comment"`
	GPSLatitude  *string `json:"gps_latitude"`
	GPSLongitude *string `json:"gps_longitude"`
	CreatedAt    string  `json:"created_at"`
	LastLogin    *string `json:"last_login"`
}

// PublicUser is the subset of User returned by the auth endpoints.
type PublicUser struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Public strips the password hash and profile fields from a User.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Role: u.Role}
}

// MeasurementConfig is the per-identifier config.json document. It is written
// once at setup time and overwritten wholesale on re-setup. CreatedAt is the
// client-supplied creation stamp; ServerSetupAt is stamped by the server.
type MeasurementConfig struct {
	ID            string `json:"id"`
	Comment       string `json:"comment"`
	GPSLatitude   string `json:"gps_latitude"`
	GPSLongitude  string `json:"gps_longitude"`
	CreatedAt     string `json:"created_at"`
	ServerSetupAt string `json:"server_setup_at"`
}

// Reading is one detector event as stored in a day-file, in the tab-separated
// column order adc, timestamp, vol, deadtime. Values are kept as raw strings:
// the store never reinterprets what the device wrote, and the JSON responses
// echo the file contents verbatim.
type Reading struct {
	Timestamp string `json:"timestamp"`
	ADC       string `json:"adc"`
	Vol       string `json:"vol"`
	Deadtime  string `json:"deadtime"`
}

// FileInfo describes one day-file in a file listing.
type FileInfo struct {
	Name  string    `json:"name"`
	Size  int64     `json:"size"`
	MTime time.Time `json:"mtime"`
}

// IdentifierEntry is one row of the identifier listing. Config is nil when
// the identifier directory has no readable config.json; the listing still
// includes the identifier so operators can see unregistered directories.
type IdentifierEntry struct {
	ID     string             `json:"id"`
	Config *MeasurementConfig `json:"config"`
}

// FlexValue unmarshals a JSON field that field devices send either as a
// number or as a string, preserving the original textual form. The serial
// loggers emit raw numbers while some firmware revisions quote them.
type FlexValue string

// UnmarshalJSON accepts string or number tokens; null becomes the empty value.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FlexValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = FlexValue(n.String())
		return nil
	}
	if string(data) == "null" {
		*v = ""
		return nil
	}
	return fmt.Errorf("value %q is neither string nor number", data)
}

// String returns the preserved textual form.
func (v FlexValue) String() string {
	return string(v)
}
