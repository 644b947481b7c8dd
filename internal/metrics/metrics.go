// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HoldOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cocinarte",
		Name:      "hold_operations_total",
		Help:      "Payment hold operations by operation and result.",
	}, []string{"operation", "result"})

	PersistenceDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cocinarte",
		Name:      "persistence_drift_total",
		Help:      "Booking writes that failed after the processor call succeeded.",
	}, []string{"operation"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cocinarte",
		Name:      "job_bookings_total",
		Help:      "Bookings handled by scheduled jobs by job and outcome.",
	}, []string{"job", "outcome"})

	ConsumedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cocinarte",
		Name:      "consumed_events_total",
		Help:      "Bus events handled by the consumers service by subject and result.",
	}, []string{"subject", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cocinarte",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveHold counts a hold operation outcome
func ObserveHold(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	HoldOperations.WithLabelValues(operation, result).Inc()
}
