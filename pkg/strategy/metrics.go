package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RouterRequests tracks routed requests by class and response source
	RouterRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_router_requests_total",
			Help: "Total routed requests by class and source",
		},
		[]string{"class", "source"}, // "image"|"api"|"navigation"|"other"|"passthrough", "cache"|"network"|"synthesized"
	)

	// RouterNetworkFailures tracks failed network attempts by class
	RouterNetworkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_router_network_failures_total",
			Help: "Total network failures observed by the router",
		},
		[]string{"class"},
	)

	// RouterDuration tracks routing latency by class
	RouterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flix_router_route_duration_seconds",
			Help:    "Time to resolve a routed request",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"class"},
	)

	// RouterPartitionErrors tracks partition failures that fell through to the next step
	RouterPartitionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_router_partition_errors_total",
			Help: "Partition errors caught by the router",
		},
		[]string{"operation"}, // "open", "match", "put"
	)
)
