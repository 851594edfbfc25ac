// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the warden identity service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// DecisionBuckets defines histogram buckets suited for identity decision
// latencies, ranging from 1ms (memory store) to 10s (remote directory bind).
var DecisionBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_request_duration_seconds",
			Help:    "Request duration",
			Buckets: DecisionBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthAttemptsTotal counts authentication attempts by provider and outcome.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"provider", "outcome"},
	)

	// AuthzDecisionsTotal counts authorization decisions by outcome and reason.
	AuthzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_authz_decisions_total",
			Help: "Authorization decisions",
		},
		[]string{"outcome", "reason"},
	)

	// ThrottleRejectedTotal counts authorization denials due to exhausted quotas.
	ThrottleRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_throttle_rejected_total",
			Help: "Quota rejections",
		},
		[]string{"category"},
	)

	// KeysIssuedTotal counts API keys issued, including rotations.
	KeysIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_keys_issued_total",
			Help: "API keys issued",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttemptsTotal,
		AuthzDecisionsTotal,
		ThrottleRejectedTotal,
		KeysIssuedTotal,
	)
}
