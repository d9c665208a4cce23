// Package metrics exposes the Prometheus registry used by the NCEI client.
// Metrics are defined next to the code that updates them (client, cache,
// ratelimit, bulk) and registered via promauto; this package serves them.
package metrics

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the NCEI client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Prefix is shared by every metric of this module.
const Prefix = "ncei_"

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names returns the sorted names of the module's metric families that
// currently have samples.
func Names() ([]string, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), Prefix) {
			names = append(names, f.GetName())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Metrics Documentation
//
// Quota Metrics (pkg/ratelimit):
//   - ncei_quota_used (Gauge): Requests counted against the daily quota of the last token seen
//   - ncei_rate_limit_waits_total (Counter): Requests delayed by per-second pacing
//   - ncei_quota_blocks_total (Counter): Requests refused because the daily quota is used up
//
// Cache Metrics (pkg/cache):
//   - ncei_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - ncei_cache_misses_total (Counter): Cache misses
//   - ncei_cache_size_bytes{layer="redis"} (Gauge): Size of the last cached entry
//   - ncei_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - ncei_requests_total{endpoint, status} (Counter): Requests by endpoint and outcome
//   - ncei_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - ncei_errors_total{class} (Counter): Errors by class
//   - ncei_retries_total{error_class} (Counter): Retry attempts by error class
//   - ncei_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ncei_circuit_breaker_state{name} (Gauge): 0 closed, 1 half-open, 2 open
//
// Bulk Metrics (pkg/bulk):
//   - ncei_bulk_runs_total{resource, outcome} (Counter): complete, partial, failed, invalid, aborted
//   - ncei_bulk_pages_total{resource, status} (Counter): Page requests by status
//   - ncei_bulk_records_total{resource} (Counter): Distinct records returned
//   - ncei_bulk_duration_seconds{resource} (Histogram): Run duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ncei_cache_hits_total[5m])) /
//   (sum(rate(ncei_cache_hits_total[5m])) + sum(rate(ncei_cache_misses_total[5m])))
//
//   # Partial runs
//   sum(rate(ncei_bulk_runs_total{outcome="partial"}[1h])) by (resource)
//
//   # Quota headroom
//   10000 - ncei_quota_used
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ncei_request_duration_seconds_bucket[5m]))
