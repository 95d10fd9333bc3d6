package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for metadata API requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_api_requests_total",
		Help: "Total metadata API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flix_api_request_duration_seconds",
		Help:    "Metadata API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_api_errors_total",
		Help: "Total metadata API errors by class",
	}, []string{"class"})

	apiCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_api_cache_lookups_total",
		Help: "Response cache lookups by endpoint and result",
	}, []string{"endpoint", "result"}) // result: "hit", "miss"

	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_api_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	apiRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flix_api_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	apiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_api_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)
