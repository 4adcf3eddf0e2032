// Package metrics provides Prometheus metrics for the CFS intake service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal tracks lifecycle operations by name and outcome
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cfs",
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Total number of CFS operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// NotificationsTotal tracks reporter notifications by template tag and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cfs",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of reporter notifications by tag and outcome",
		},
		[]string{"tag", "outcome"},
	)

	// NotifyQueueDepth tracks notification jobs waiting for a worker
	NotifyQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cfs",
			Subsystem: "notify",
			Name:      "queue_depth",
			Help:      "Number of notification jobs waiting for a worker",
		},
	)

	// CompensationsTotal tracks compensating cleanups by outcome
	CompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cfs",
			Subsystem: "attachments",
			Name:      "compensations_total",
			Help:      "Total number of blob compensations by outcome",
		},
		[]string{"outcome"},
	)

	// InvalidationsTotal tracks cache invalidation signals by sink and outcome
	InvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cfs",
			Subsystem: "invalidation",
			Name:      "signals_total",
			Help:      "Total number of cache invalidation signals by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	// TrackingExpiredTotal tracks public tracking projections removed by retention
	TrackingExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cfs",
			Subsystem: "tracking",
			Name:      "expired_total",
			Help:      "Total number of public tracking projections removed by the retention sweep",
		},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cfs",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cfs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeSent     = "sent"
	OutcomeSkipped  = "skipped"
	OutcomeDropped  = "dropped"
	OutcomePanicked = "panicked"
)
