// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package store implements the on-disk measurement layout:
//
//	{dataDir}/{id}/config.json       per-identifier metadata
//	{dataDir}/{id}/{YYYY-MM-DD}.dat  one day-file per calendar day
//
// Day-files are newline-delimited, tab-separated records in the fixed column
// order adc, timestamp, vol, deadtime. Append is the only write operation on
// day-files; a single writer per identifier is assumed (each detector owns
// its id).
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/skylab-edu/cosmicwatch/internal/logging"
	"github.com/skylab-edu/cosmicwatch/internal/metrics"
	"github.com/skylab-edu/cosmicwatch/internal/models"
)

// Sentinel errors returned by the store.
var (
	// ErrIdentifierNotFound indicates the identifier directory is absent.
	// Setup must precede ingestion.
	ErrIdentifierNotFound = errors.New("identifier not found")

	// ErrFileNotFound indicates the requested day-file is absent.
	ErrFileNotFound = errors.New("data file not found")

	// ErrInvalidIdentifier indicates an identifier that is empty or would
	// escape the data directory.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidFilename indicates a filename that is not a day-file name.
	ErrInvalidFilename = errors.New("invalid data file name")
)

const (
	configFileName = "config.json"
	dataFileSuffix = ".dat"

	// latestReadingsCount is how many trailing readings LatestReadings
	// returns, for lightweight polling dashboards.
	latestReadingsCount = 10
)

// identifierPattern restricts identifiers to names that cannot traverse out
// of the data directory. Detector ids are short alphanumeric names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// dayFilePattern matches day-file names like 2025-06-16.dat.
var dayFilePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.dat$`)

// Store is the file-backed measurement store rooted at a data directory.
type Store struct {
	dataDir string
}

// New creates a Store rooted at dataDir, creating the directory if needed.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

// DataDir returns the store's root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ValidateIdentifier reports whether id is a usable identifier name.
func ValidateIdentifier(id string) error {
	if !identifierPattern.MatchString(id) || id == "." || id == ".." {
		return ErrInvalidIdentifier
	}
	return nil
}

// ValidateFilename reports whether name is a well-formed day-file name.
func ValidateFilename(name string) error {
	if !dayFilePattern.MatchString(name) {
		return ErrInvalidFilename
	}
	return nil
}

// identifierDir resolves the directory for an identifier after validation.
func (s *Store) identifierDir(id string) (string, error) {
	if err := ValidateIdentifier(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dataDir, id), nil
}

// Setup idempotently creates the identifier directory and writes (or
// overwrites) its config document. The returned config carries the
// server-side setup timestamp, distinct from the client-supplied created_at.
func (s *Store) Setup(cfg models.MeasurementConfig) (*models.MeasurementConfig, error) {
	dir, err := s.identifierDir(cfg.ID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.RecordStoreError("setup")
		return nil, fmt.Errorf("failed to create identifier directory: %w", err)
	}

	cfg.ServerSetupAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0o644); err != nil {
		metrics.RecordStoreError("setup")
		return nil, fmt.Errorf("failed to write config: %w", err)
	}

	logging.Info().Str("identifier", cfg.ID).Msg("identifier setup complete")
	return &cfg, nil
}

// Check reports whether the identifier is registered (directory plus
// readable config). A directory whose config is missing or malformed
// reports exists=false, matching what dashboards need to prompt re-setup.
func (s *Store) Check(id string) (bool, *models.MeasurementConfig, error) {
	dir, err := s.identifierDir(id)
	if err != nil {
		return false, nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return false, nil, nil
	}

	cfg, err := s.readConfig(dir)
	if err != nil {
		return false, nil, err
	}
	return true, cfg, nil
}

// readConfig loads a directory's config.json. Missing file yields (nil, nil);
// a malformed file is an error the caller decides how to degrade.
func (s *Store) readConfig(dir string) (*models.MeasurementConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &models.MeasurementConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DayKey derives the day-file base name from a reading timestamp: the first
// three dash-separated components, which for the device format
// YYYY-MM-DD-HH-MM-SS.ffffff is the calendar day.
func DayKey(timestamp string) (string, error) {
	parts := strings.SplitN(timestamp, "-", 4)
	if len(parts) < 3 {
		return "", fmt.Errorf("timestamp %q has no date prefix", timestamp)
	}
	day := parts[0] + "-" + parts[1] + "-" + parts[2]
	if err := ValidateFilename(day + dataFileSuffix); err != nil {
		return "", fmt.Errorf("timestamp %q has malformed date prefix", timestamp)
	}
	return day, nil
}

// Append appends one reading to the day-file derived from its timestamp,
// creating the file if absent. The identifier directory must already exist
// (ErrIdentifierNotFound otherwise). Append is the sole write operation on
// day-files; no locking is performed.
func (s *Store) Append(id string, reading models.Reading) error {
	dir, err := s.identifierDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return ErrIdentifierNotFound
	}

	day, err := DayKey(reading.Timestamp)
	if err != nil {
		return err
	}

	line := reading.ADC + "\t" + reading.Timestamp + "\t" + reading.Vol + "\t" + reading.Deadtime + "\n"

	f, err := os.OpenFile(filepath.Join(dir, day+dataFileSuffix), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		metrics.RecordStoreError("append")
		return fmt.Errorf("failed to open day file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Error().Err(cerr).Str("identifier", id).Msg("failed to close day file")
		}
	}()

	if _, err := f.WriteString(line); err != nil {
		metrics.RecordStoreError("append")
		return fmt.Errorf("failed to append reading: %w", err)
	}

	metrics.RecordReadingIngested(id)
	return nil
}

// ListIdentifiers enumerates all identifier directories with a best-effort
// config load. A missing or malformed config yields a nil config entry
// rather than failing the whole listing.
func (s *Store) ListIdentifiers() ([]models.IdentifierEntry, error) {
	dirents, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.IdentifierEntry{}, nil
		}
		metrics.RecordStoreError("list_identifiers")
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	entries := make([]models.IdentifierEntry, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		cfg, err := s.readConfig(filepath.Join(s.dataDir, d.Name()))
		if err != nil {
			logging.Error().Err(err).Str("identifier", d.Name()).Msg("skipping unreadable config")
			cfg = nil
		}
		entries = append(entries, models.IdentifierEntry{ID: d.Name(), Config: cfg})
	}
	return entries, nil
}

// ListFiles returns the identifier's config (nil when unreadable) plus all
// of its day-files with size and mtime, most recently modified first.
func (s *Store) ListFiles(id string) (*models.MeasurementConfig, []models.FileInfo, error) {
	dir, err := s.identifierDir(id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, ErrIdentifierNotFound
	}

	cfg, err := s.readConfig(dir)
	if err != nil {
		logging.Error().Err(err).Str("identifier", id).Msg("unreadable config in file listing")
		cfg = nil
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		metrics.RecordStoreError("list_files")
		return nil, nil, fmt.Errorf("failed to read identifier directory: %w", err)
	}

	files := make([]models.FileInfo, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), dataFileSuffix) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		files = append(files, models.FileInfo{
			Name:  d.Name(),
			Size:  info.Size(),
			MTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].MTime.After(files[j].MTime)
	})
	return cfg, files, nil
}

// ReadFile parses every non-empty line of a day-file into a Reading by
// splitting on tab in the fixed column order. The full ordered sequence is
// returned; callers must tolerate large responses for long measurements.
func (s *Store) ReadFile(id, filename string) ([]models.Reading, error) {
	path, err := s.filePath(id, filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		metrics.RecordStoreError("read_file")
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	return ParseReadings(string(data)), nil
}

// ParseReadings parses day-file content into readings, skipping empty lines.
// Short lines yield readings with empty trailing fields rather than errors:
// the store reports what the device wrote.
func ParseReadings(content string) []models.Reading {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	readings := make([]models.Reading, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		readings = append(readings, parseLine(line))
	}
	return readings
}

// parseLine splits one tab-separated record: adc, timestamp, vol, deadtime.
func parseLine(line string) models.Reading {
	cols := strings.Split(line, "\t")
	r := models.Reading{}
	if len(cols) > 0 {
		r.ADC = cols[0]
	}
	if len(cols) > 1 {
		r.Timestamp = cols[1]
	}
	if len(cols) > 2 {
		r.Vol = cols[2]
	}
	if len(cols) > 3 {
		r.Deadtime = cols[3]
	}
	return r
}

// LatestReadings returns the last 10 readings of the current day's file, or
// an empty slice when no file exists yet today. ErrIdentifierNotFound when
// the identifier is absent.
func (s *Store) LatestReadings(id string, now time.Time) ([]models.Reading, error) {
	dir, err := s.identifierDir(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, ErrIdentifierNotFound
	}

	filename := now.UTC().Format("2006-01-02") + dataFileSuffix
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Reading{}, nil
		}
		return nil, fmt.Errorf("failed to read day file: %w", err)
	}

	readings := ParseReadings(string(data))
	if len(readings) > latestReadingsCount {
		readings = readings[len(readings)-latestReadingsCount:]
	}
	return readings, nil
}

// Open opens a day-file for streaming (download). The caller closes the
// returned reader. ErrFileNotFound when absent.
func (s *Store) Open(id, filename string) (io.ReadCloser, int64, error) {
	path, err := s.filePath(id, filename)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrFileNotFound
		}
		return nil, 0, fmt.Errorf("failed to open data file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("failed to stat data file: %w", err)
	}
	return f, info.Size(), nil
}

// filePath validates both path components and joins them under the root.
func (s *Store) filePath(id, filename string) (string, error) {
	dir, err := s.identifierDir(id)
	if err != nil {
		return "", err
	}
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}
