// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package histogram computes the derived statistics the dashboard plots
// from raw detector readings: the per-minute event-rate histogram, the
// pulse-amplitude distribution, and summary statistics.
package histogram

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skylab-edu/cosmicwatch/internal/models"
)

// minuteSeconds is the bucket width of the time histogram.
const minuteSeconds = 60

// adcBinWidth is the bucket width of the amplitude histogram.
const adcBinWidth = 4

// Bucket is one histogram bucket keyed by its lower bound.
type Bucket struct {
	Key   int `json:"key"`
	Count int `json:"count"`
}

// Stats summarizes one day-file's readings.
type Stats struct {
	TotalEvents     int     `json:"totalEvents"`
	MeasurementTime float64 `json:"measurementTime"`
	Rate            float64 `json:"rate"`
}

// ParseTimestamp parses the device timestamp format
// YYYY-MM-DD-HH-MM-SS.ffffff into a local time. The seconds component may
// carry a fractional part. Returns an error for any short or non-numeric
// timestamp; callers drop such readings silently.
func ParseTimestamp(ts string) (time.Time, error) {
	parts := strings.Split(ts, "-")
	if len(parts) < 6 {
		return time.Time{}, fmt.Errorf("timestamp %q has too few components", ts)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad year in %q: %w", ts, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad month in %q: %w", ts, err)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad day in %q: %w", ts, err)
	}
	hour, err := strconv.Atoi(parts[3])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad hour in %q: %w", ts, err)
	}
	minute, err := strconv.Atoi(parts[4])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad minute in %q: %w", ts, err)
	}
	seconds, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad seconds in %q: %w", ts, err)
	}

	sec := int(seconds)
	nsec := int((seconds - float64(sec)) * 1e9)
	return time.Date(year, time.Month(month), day, hour, minute, sec, nsec, time.Local), nil
}

// parseTimes extracts the valid timestamps of a reading sequence, sorted
// ascending. Unparsable timestamps are dropped.
func parseTimes(readings []models.Reading) []time.Time {
	times := make([]time.Time, 0, len(readings))
	for _, r := range readings {
		t, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			continue
		}
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

// TimeHistogram buckets readings into one-minute bins offset from the
// earliest valid timestamp. The bucket range is dense and inclusive: keys
// run from 0 through the bucket of the latest reading, zero-filled, so a
// quiet minute plots as zero rather than vanishing. Nil when fewer than
// one valid timestamp exists.
func TimeHistogram(readings []models.Reading) []Bucket {
	times := parseTimes(readings)
	if len(times) == 0 {
		return nil
	}

	earliest := times[0]
	latest := times[len(times)-1]
	span := latest.Sub(earliest).Seconds()
	last := int(span) / minuteSeconds
	if span > float64(last*minuteSeconds) {
		last++
	}

	counts := make([]int, last+1)
	for _, t := range times {
		idx := int(t.Sub(earliest).Seconds()) / minuteSeconds
		if idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}

	buckets := make([]Bucket, len(counts))
	for i, c := range counts {
		buckets[i] = Bucket{Key: i, Count: c}
	}
	return buckets
}

// floorDiv is integer division rounding toward negative infinity, so
// negative amplitudes bin consistently with positive ones.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ceilDiv is integer division rounding toward positive infinity.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}

// AmplitudeHistogram buckets the deadtime column into bins of width 4 keyed
// by lower bound. The range is dense and zero-filled from the lowest bin
// through ceil(max/4)*4, so the chart always ends on a bin boundary at or
// above the maximum value. Non-integer values are dropped; nil when no
// value parses.
func AmplitudeHistogram(readings []models.Reading) []Bucket {
	values := make([]int, 0, len(readings))
	for _, r := range readings {
		v, err := strconv.Atoi(strings.TrimSpace(r.Deadtime))
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	firstBin := floorDiv(minVal, adcBinWidth) * adcBinWidth
	lastBin := ceilDiv(maxVal, adcBinWidth) * adcBinWidth

	counts := make(map[int]int, (lastBin-firstBin)/adcBinWidth+1)
	for _, v := range values {
		counts[floorDiv(v, adcBinWidth)*adcBinWidth]++
	}

	buckets := make([]Bucket, 0, (lastBin-firstBin)/adcBinWidth+1)
	for k := firstBin; k <= lastBin; k += adcBinWidth {
		buckets = append(buckets, Bucket{Key: k, Count: counts[k]})
	}
	return buckets
}

// Statistics computes the summary panel numbers: total event count, elapsed
// measurement time in seconds, and average event rate. The rate divides the
// full event count, including readings whose timestamps fail to parse; only
// the duration comes from the valid timestamps. With fewer than two valid
// timestamps the time and rate are zero; a zero duration also yields a zero
// rate rather than infinity.
func Statistics(readings []models.Reading) Stats {
	stats := Stats{TotalEvents: len(readings)}

	times := parseTimes(readings)
	if len(times) < 2 {
		return stats
	}

	duration := times[len(times)-1].Sub(times[0]).Seconds()
	stats.MeasurementTime = duration
	if duration > 0 {
		stats.Rate = float64(stats.TotalEvents) / duration
	}
	return stats
}
