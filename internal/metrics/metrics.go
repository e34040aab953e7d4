// Package metrics provides Prometheus metrics for the assistant.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemoteCallsTotal counts remote call attempts by operation and outcome.
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "remote_calls_total",
			Help:      "Total number of remote call attempts",
		},
		[]string{"op", "status"},
	)

	// RemoteCallDuration measures remote call attempts.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ela",
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of remote call attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op"},
	)

	// RetriesTotal counts retries after a retryable failure.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "retries_total",
			Help:      "Total number of retried remote calls",
		},
		[]string{"op"},
	)

	// CacheLookupsTotal counts cache lookups by namespace and result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "cache_lookups_total",
			Help:      "Total number of result cache lookups",
		},
		[]string{"namespace", "result"},
	)

	// InFlightJoinsTotal counts callers that joined an already running call.
	InFlightJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "inflight_joins_total",
			Help:      "Total number of requests deduplicated onto a running call",
		},
	)

	// BreakerTripsTotal counts sessions stopped by the circuit breaker.
	BreakerTripsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
	)

	// InvalidationsTotal counts context invalidations.
	InvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "context_invalidations_total",
			Help:      "Total number of detected context invalidations",
		},
	)

	// RepairItemsTotal counts analysis items fixed or dropped during validation.
	RepairItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "repair_items_total",
			Help:      "Total number of analysis items fixed or dropped",
		},
		[]string{"action"},
	)

	// SessionUnitsTotal counts session work units by outcome.
	SessionUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ela",
			Name:      "session_units_total",
			Help:      "Total number of session work units by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRemoteCall records one remote call attempt.
func RecordRemoteCall(op, status string, seconds float64) {
	RemoteCallsTotal.WithLabelValues(op, status).Inc()
	RemoteCallDuration.WithLabelValues(op).Observe(seconds)
}

// RecordRetry records a retry of op.
func RecordRetry(op string) {
	RetriesTotal.WithLabelValues(op).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(namespace, result).Inc()
}

// RecordRepair records validation counters of one analysis.
func RecordRepair(fixed, dropped int) {
	if fixed > 0 {
		RepairItemsTotal.WithLabelValues("fixed").Add(float64(fixed))
	}
	if dropped > 0 {
		RepairItemsTotal.WithLabelValues("dropped").Add(float64(dropped))
	}
}

// RecordSession records the unit outcomes of a finished session.
func RecordSession(succeeded, failed, abandoned int) {
	SessionUnitsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	SessionUnitsTotal.WithLabelValues("failed").Add(float64(failed))
	SessionUnitsTotal.WithLabelValues("abandoned").Add(float64(abandoned))
}
