package bgsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncForwarded tracks forward attempts by result
	SyncForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_sync_forwarded_total",
			Help: "Total pending mutations forwarded by result",
		},
		[]string{"result"}, // "ok", "error"
	)

	// QueueDepth tracks queued mutations
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flix_sync_queue_depth",
			Help: "Number of mutations waiting to be forwarded",
		},
	)
)
