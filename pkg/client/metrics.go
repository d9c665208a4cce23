package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for NCEI client operations.
var (
	nceiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncei_requests_total",
		Help: "Total NCEI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	nceiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ncei_request_duration_seconds",
		Help:    "NCEI request duration in seconds by endpoint, including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	nceiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncei_errors_total",
		Help: "Total NCEI errors by class",
	}, []string{"class"})

	nceiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ncei_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	nceiRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ncei_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	nceiCircuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ncei_circuit_breaker_state",
		Help: "Circuit breaker state by name (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
)
