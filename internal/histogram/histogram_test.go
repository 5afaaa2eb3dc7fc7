// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

package histogram

import (
	"math"
	"testing"
	"time"

	"github.com/skylab-edu/cosmicwatch/internal/models"
)

func readingsAt(timestamps ...string) []models.Reading {
	readings := make([]models.Reading, len(timestamps))
	for i, ts := range timestamps {
		readings[i] = models.Reading{Timestamp: ts, ADC: "300", Vol: "1.2", Deadtime: "5"}
	}
	return readings
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "full precision",
			input: "2025-06-16-10-30-15.500000",
			want:  time.Date(2025, time.June, 16, 10, 30, 15, 500000000, time.Local),
		},
		{
			name:  "integer seconds",
			input: "2025-01-02-03-04-05",
			want:  time.Date(2025, time.January, 2, 3, 4, 5, 0, time.Local),
		},
		{
			name:    "too few components",
			input:   "2025-06-16",
			wantErr: true,
		},
		{
			name:    "non numeric month",
			input:   "2025-xx-16-10-30-15.5",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimestamp(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) unexpected error: %v", tt.input, err)
			}
			// Fractional seconds go through float64, so allow sub-microsecond slack.
			if diff := got.Sub(tt.want); diff < -time.Microsecond || diff > time.Microsecond {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeHistogram(t *testing.T) {
	// Events at minute offsets 0, 0, 1, 3: the range is inclusive, so the
	// quiet minute 2 appears with a zero count.
	readings := readingsAt(
		"2025-06-16-10-00-00.000000",
		"2025-06-16-10-00-30.000000",
		"2025-06-16-10-01-10.000000",
		"2025-06-16-10-03-00.000000",
	)

	buckets := TimeHistogram(readings)
	wantCounts := []int{2, 1, 0, 1}
	if len(buckets) != len(wantCounts) {
		t.Fatalf("got %d buckets, want %d: %+v", len(buckets), len(wantCounts), buckets)
	}
	for i, want := range wantCounts {
		if buckets[i].Key != i {
			t.Errorf("bucket %d has key %d, want %d", i, buckets[i].Key, i)
		}
		if buckets[i].Count != want {
			t.Errorf("bucket %d has count %d, want %d", i, buckets[i].Count, want)
		}
	}
}

func TestTimeHistogramSingleReading(t *testing.T) {
	buckets := TimeHistogram(readingsAt("2025-06-16-10-00-00.000000"))
	if len(buckets) != 1 || buckets[0].Key != 0 || buckets[0].Count != 1 {
		t.Fatalf("single reading should yield one bucket with count 1, got %+v", buckets)
	}
}

func TestTimeHistogramDropsInvalidTimestamps(t *testing.T) {
	readings := append(
		readingsAt("2025-06-16-10-00-00.000000", "2025-06-16-10-01-00.000000"),
		models.Reading{Timestamp: "garbage"},
		models.Reading{Timestamp: ""},
	)

	buckets := TimeHistogram(readings)
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != 2 {
		t.Errorf("invalid timestamps must be dropped: counted %d events, want 2", total)
	}
}

func TestTimeHistogramEmpty(t *testing.T) {
	if got := TimeHistogram(nil); got != nil {
		t.Errorf("TimeHistogram(nil) = %+v, want nil", got)
	}
	if got := TimeHistogram([]models.Reading{{Timestamp: "bad"}}); got != nil {
		t.Errorf("all-invalid input should yield nil, got %+v", got)
	}
}

func deadtimes(values ...string) []models.Reading {
	readings := make([]models.Reading, len(values))
	for i, v := range values {
		readings[i] = models.Reading{Deadtime: v}
	}
	return readings
}

func TestAmplitudeHistogram(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []Bucket
	}{
		{
			// Maximum on a bin boundary: the range ends at its own bin.
			name:   "max on boundary",
			values: []string{"4", "5", "8", "12"},
			want:   []Bucket{{Key: 4, Count: 2}, {Key: 8, Count: 1}, {Key: 12, Count: 1}},
		},
		{
			// Maximum off a bin boundary: the range runs through the next
			// boundary, so the chart always ends on an empty trailing bin.
			name:   "max off boundary",
			values: []string{"5", "6", "9", "13"},
			want:   []Bucket{{Key: 4, Count: 2}, {Key: 8, Count: 1}, {Key: 12, Count: 1}, {Key: 16, Count: 0}},
		},
		{
			name:   "negative values bin toward negative infinity",
			values: []string{"-3", "2"},
			want:   []Bucket{{Key: -4, Count: 1}, {Key: 0, Count: 1}, {Key: 4, Count: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets := AmplitudeHistogram(deadtimes(tt.values...))
			if len(buckets) != len(tt.want) {
				t.Fatalf("got %d buckets, want %d: %+v", len(buckets), len(tt.want), buckets)
			}
			for i := range tt.want {
				if buckets[i] != tt.want[i] {
					t.Errorf("bucket %d = %+v, want %+v", i, buckets[i], tt.want[i])
				}
			}
		})
	}
}

func TestAmplitudeHistogramDenseRange(t *testing.T) {
	// Gap between 0 and 44 must be zero-filled, one bucket per bin of 4;
	// 41 rounds the upper bound up to 44.
	buckets := AmplitudeHistogram(deadtimes("1", "41"))
	if len(buckets) != 12 {
		t.Fatalf("got %d buckets, want 12", len(buckets))
	}
	if buckets[0].Key != 0 || buckets[0].Count != 1 {
		t.Errorf("first bucket = %+v, want {0 1}", buckets[0])
	}
	if buckets[10].Key != 40 || buckets[10].Count != 1 {
		t.Errorf("bucket 10 = %+v, want {40 1}", buckets[10])
	}
	if buckets[11].Key != 44 || buckets[11].Count != 0 {
		t.Errorf("last bucket = %+v, want {44 0}", buckets[11])
	}
	for i := 1; i < 10; i++ {
		if buckets[i].Count != 0 {
			t.Errorf("bucket %+v should be empty", buckets[i])
		}
	}
}

func TestAmplitudeHistogramNonNumeric(t *testing.T) {
	if got := AmplitudeHistogram([]models.Reading{{Deadtime: "abc"}, {Deadtime: ""}}); got != nil {
		t.Errorf("non-numeric deadtimes should yield nil, got %+v", got)
	}
}

func TestStatistics(t *testing.T) {
	readings := readingsAt(
		"2025-06-16-10-00-00.000000",
		"2025-06-16-10-00-30.000000",
		"2025-06-16-10-01-40.000000",
	)

	stats := Statistics(readings)
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if math.Abs(stats.MeasurementTime-100) > 0.001 {
		t.Errorf("MeasurementTime = %v, want 100", stats.MeasurementTime)
	}
	if math.Abs(stats.Rate-0.03) > 0.001 {
		t.Errorf("Rate = %v, want 0.03", stats.Rate)
	}
}

func TestStatisticsCountsUnparsableReadings(t *testing.T) {
	// The rate divides the full event count; readings with unparsable
	// timestamps still count as events even though only the valid
	// timestamps define the duration.
	readings := append(
		readingsAt(
			"2025-06-16-10-00-00.000000",
			"2025-06-16-10-01-40.000000",
		),
		models.Reading{Timestamp: "garbage"},
		models.Reading{Timestamp: ""},
	)

	stats := Statistics(readings)
	if stats.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d, want 4", stats.TotalEvents)
	}
	if math.Abs(stats.MeasurementTime-100) > 0.001 {
		t.Errorf("MeasurementTime = %v, want 100", stats.MeasurementTime)
	}
	if math.Abs(stats.Rate-0.04) > 0.001 {
		t.Errorf("Rate = %v, want 0.04", stats.Rate)
	}
}

func TestStatisticsDegenerateInput(t *testing.T) {
	tests := []struct {
		name     string
		readings []models.Reading
		want     Stats
	}{
		{name: "empty", readings: nil, want: Stats{}},
		{
			name:     "single reading",
			readings: readingsAt("2025-06-16-10-00-00.000000"),
			want:     Stats{TotalEvents: 1},
		},
		{
			name:     "all invalid timestamps",
			readings: []models.Reading{{Timestamp: "x"}, {Timestamp: "y"}},
			want:     Stats{TotalEvents: 2},
		},
		{
			name: "identical timestamps yield zero rate",
			readings: readingsAt(
				"2025-06-16-10-00-00.000000",
				"2025-06-16-10-00-00.000000",
			),
			want: Stats{TotalEvents: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Statistics(tt.readings)
			if got != tt.want {
				t.Errorf("Statistics() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{7, 4, 1},
		{8, 4, 2},
		{0, 4, 0},
		{-1, 4, -1},
		{-4, 4, -1},
		{-5, 4, -2},
	}
	for _, tt := range tests {
		if got := floorDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("floorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{7, 4, 2},
		{8, 4, 2},
		{13, 4, 4},
		{0, 4, 0},
		{-1, 4, 0},
		{-4, 4, -1},
		{-5, 4, -1},
	}
	for _, tt := range tests {
		if got := ceilDiv(tt.a, tt.b); got != tt.want {
			t.Errorf("ceilDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
