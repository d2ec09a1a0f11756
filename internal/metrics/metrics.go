// Package metrics defines the Prometheus instruments for the admin gate.
//
// Metrics are exposed at /metrics in Prometheus text format. Rejection
// reasons are recorded here and in the logs only; they are never returned
// to HTTP clients.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gate metrics
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sajuwooju_authentication_total",
			Help: "Authentication gate outcomes by result",
		},
		[]string{"result"}, // "authenticated", "missing_credential", "bad_credential", "revoked", "account_unavailable", "directory_unavailable"
	)

	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sajuwooju_authorization_total",
			Help: "Authorization gate outcomes by permission",
		},
		[]string{"permission", "result"}, // result: "allowed", "forbidden"
	)

	LoginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sajuwooju_login_total",
			Help: "Admin login attempts by result",
		},
		[]string{"result"}, // "success", "invalid", "unavailable"
	)

	// Directory metrics
	DirectoryLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sajuwooju_directory_lookup_duration_seconds",
			Help:    "Duration of admin directory point lookups in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 3},
		},
		[]string{"operation", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sajuwooju_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sajuwooju_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Revocation metrics
	RevocationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sajuwooju_revocation_operations_total",
			Help: "Token denylist operations by backend",
		},
		[]string{"backend", "operation", "result"},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sajuwooju_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordAuthentication counts one authentication gate outcome.
func RecordAuthentication(result string) {
	AuthenticationTotal.WithLabelValues(result).Inc()
}

// RecordAuthorization counts one authorization decision.
func RecordAuthorization(permission string, allowed bool) {
	result := "forbidden"
	if allowed {
		result = "allowed"
	}
	AuthorizationTotal.WithLabelValues(permission, result).Inc()
}

// RecordLogin counts one login attempt.
func RecordLogin(result string) {
	LoginTotal.WithLabelValues(result).Inc()
}

// RecordDirectoryLookup observes a directory lookup. Not-found is a normal
// result for the gate, so callers pass found=false rather than an error.
func RecordDirectoryLookup(operation string, duration time.Duration, found bool, err error) {
	result := "found"
	switch {
	case err != nil:
		result = "error"
	case !found:
		result = "not_found"
	}
	DirectoryLookupDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// RecordRevocation counts a denylist operation.
func RecordRevocation(backend, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RevocationOperations.WithLabelValues(backend, operation, result).Inc()
}

// RecordHTTPRequest observes a completed HTTP request. route is the chi
// route pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
