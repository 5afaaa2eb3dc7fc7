// CosmicWatch - Cosmic-Ray Detector Telemetry and Geographic Visualization
// Copyright 2026 SkyLab Education
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/skylab-edu/cosmicwatch

// Package metrics defines the Prometheus instrumentation surface. All
// collectors are registered on the default registry via promauto and
// exposed by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route pattern and
	// status code.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicwatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration observes request latency by method and route.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cosmicwatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// APIActiveRequests tracks in-flight requests.
	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicwatch_api_active_requests",
			Help: "Number of currently active API requests",
		},
	)

	// ReadingsIngestedTotal counts accepted detector readings per
	// measurement identifier.
	ReadingsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicwatch_readings_ingested_total",
			Help: "Total number of detector readings ingested",
		},
		[]string{"identifier"},
	)

	// StoreErrorsTotal counts measurement store failures by operation.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicwatch_store_errors_total",
			Help: "Total number of measurement store errors",
		},
		[]string{"operation"},
	)

	// AuthFailuresTotal counts rejected authentication attempts by reason.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmicwatch_auth_failures_total",
			Help: "Total number of failed authentication attempts",
		},
		[]string{"reason"},
	)

	// WSConnectedClients tracks currently connected WebSocket clients.
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosmicwatch_websocket_connected_clients",
			Help: "Number of currently connected WebSocket clients",
		},
	)

	// WSMessagesSent counts messages broadcast to WebSocket clients.
	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cosmicwatch_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

// RecordAPIRequest records one completed request.
func RecordAPIRequest(method, endpoint, status string, durationSeconds float64) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// TrackActiveRequest marks a request in flight and returns its completion
// callback.
func TrackActiveRequest() func() {
	APIActiveRequests.Inc()
	return func() { APIActiveRequests.Dec() }
}

// RecordReadingIngested records one accepted reading for an identifier.
func RecordReadingIngested(identifier string) {
	ReadingsIngestedTotal.WithLabelValues(identifier).Inc()
}

// RecordStoreError records a store failure for an operation.
func RecordStoreError(operation string) {
	StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordAuthFailure records a rejected authentication attempt.
func RecordAuthFailure(reason string) {
	AuthFailuresTotal.WithLabelValues(reason).Inc()
}
