package bulk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	outcomeComplete = "complete"
	outcomePartial  = "partial"
	outcomeFailed   = "failed"
	outcomeInvalid  = "invalid"
	outcomeAborted  = "aborted"
)

var (
	bulkRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncei_bulk_runs_total",
			Help: "Total number of bulk queries by resource and outcome",
		},
		[]string{"resource", "outcome"},
	)

	bulkPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncei_bulk_pages_total",
			Help: "Total number of result pages requested",
		},
		[]string{"resource", "status"}, // status: ok, failed
	)

	bulkRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ncei_bulk_records_total",
			Help: "Total number of distinct records returned by bulk queries",
		},
		[]string{"resource"},
	)

	bulkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ncei_bulk_duration_seconds",
			Help:    "Bulk query duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"resource"},
	)
)
