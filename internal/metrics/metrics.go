// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notevault"

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_active_requests",
			Help:      "Current number of active HTTP requests",
		},
	)

	PanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Handler panics recovered by the server",
		},
		[]string{"method", "route"},
	)

	// Domain Metrics
	NoteOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_operations_total",
			Help:      "Total number of successful note operations",
		},
		[]string{"operation"}, // create, update, favorite, move, copy, delete
	)

	FolderOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "folder_operations_total",
			Help:      "Total number of successful folder operations",
		},
		[]string{"operation"}, // root, create, rename, move, delete
	)

	VersionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_version_conflicts_total",
			Help:      "Note updates rejected because the expected version was stale",
		},
	)

	// Authentication Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts",
		},
		[]string{"status"}, // success, failure
	)
)

// TrackNoteOperation increments the note operation counter
func TrackNoteOperation(operation string) {
	NoteOperationsTotal.WithLabelValues(operation).Inc()
}

// TrackFolderOperation increments the folder operation counter
func TrackFolderOperation(operation string) {
	FolderOperationsTotal.WithLabelValues(operation).Inc()
}

// TrackVersionConflict records a rejected compare-and-swap
func TrackVersionConflict() {
	VersionConflictsTotal.Inc()
}

// TrackPanic records a recovered handler panic
func TrackPanic(method, route string) {
	PanicsTotal.WithLabelValues(method, route).Inc()
}

// TrackAuthAttempt records an authentication attempt
func TrackAuthAttempt(status string) {
	AuthAttempts.WithLabelValues(status).Inc()
}
