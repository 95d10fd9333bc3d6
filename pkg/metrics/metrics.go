// Package metrics exposes the Prometheus registry used by flix-cache.
// All metrics are defined in their respective packages (cache, partition,
// strategy, ...) to maintain modularity and avoid circular dependencies.
//
// This package serves them and documents what is available.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Response Cache Metrics (pkg/cache):
//   - flix_response_cache_hits_total (Counter): Lookups served from memory
//   - flix_response_cache_misses_total (Counter): Lookups that missed or found an expired entry
//   - flix_response_cache_evictions_total{reason} (Counter): Entries removed (expired, sweep, clear)
//   - flix_response_cache_entries (Gauge): Entries currently held
//
// Partition Metrics (pkg/partition):
//   - flix_partition_operations_total{backend, operation, result} (Counter): Store operations
//   - flix_partition_bytes_written_total{backend} (Counter): Response bytes stored
//
// Router Metrics (pkg/strategy):
//   - flix_router_requests_total{class, source} (Counter): Routed requests by class and answer source
//   - flix_router_network_failures_total{class} (Counter): Network attempts that failed
//   - flix_router_route_duration_seconds{class} (Histogram): Time to resolve a request
//   - flix_router_partition_errors_total{operation} (Counter): Partition failures that fell through
//
// Lifecycle Metrics (pkg/lifecycle):
//   - flix_lifecycle_precache_assets_total{result} (Counter): Manifest assets pre-cached at install
//   - flix_lifecycle_partitions_deleted_total (Counter): Partitions of old versions removed
//   - flix_lifecycle_state (Gauge): Current lifecycle state (0 parsed .. 4 activated)
//
// Connectivity Metrics (pkg/connectivity):
//   - flix_connectivity_online (Gauge): 1 while the network is reachable
//   - flix_connectivity_transitions_total{to} (Counter): Online/offline transitions
//   - flix_connectivity_probes_total{result} (Counter): Probes sent while offline
//
// Sync Metrics (pkg/bgsync):
//   - flix_sync_forwarded_total{result} (Counter): Mutations forwarded to the remote endpoint
//   - flix_sync_queue_depth (Gauge): Mutations waiting to be forwarded
//
// Notification and Worker Metrics (pkg/notify, pkg/worker):
//   - flix_notify_shown_total{result} (Counter): Notifications handed to the host
//   - flix_notify_clicks_total{action} (Counter): Notification clicks by action
//   - flix_worker_events_total{kind, result} (Counter): Dispatched events
//
// API Client Metrics (pkg/client):
//   - flix_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - flix_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - flix_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, offline)
//   - flix_api_cache_lookups_total{endpoint, result} (Counter): Response cache lookups by call site
//   - flix_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - flix_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - flix_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Response Cache Hit Rate
//   sum(rate(flix_response_cache_hits_total[5m])) /
//   (sum(rate(flix_response_cache_hits_total[5m])) + sum(rate(flix_response_cache_misses_total[5m])))
//
//   # Share of requests answered while offline
//   sum(rate(flix_router_requests_total{source!="network"}[5m])) / sum(rate(flix_router_requests_total[5m]))
//
//   # Stuck sync queue
//   flix_sync_queue_depth > 0 and flix_connectivity_online == 1
//
//   # P95 Route Latency
//   histogram_quantile(0.95, rate(flix_router_route_duration_seconds_bucket[5m]))
