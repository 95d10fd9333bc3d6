package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks response cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flix_response_cache_hits_total",
			Help: "Total number of in-memory response cache hits",
		},
	)

	// CacheMisses tracks response cache misses (absent or expired)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flix_response_cache_misses_total",
			Help: "Total number of in-memory response cache misses",
		},
	)

	// CacheEvictions tracks removed entries by reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_response_cache_evictions_total",
			Help: "Total number of entries removed from the response cache",
		},
		[]string{"reason"}, // "expired", "sweep", "clear"
	)

	// CacheEntries tracks the number of live entries
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flix_response_cache_entries",
			Help: "Current number of entries held by the response cache",
		},
	)
)
