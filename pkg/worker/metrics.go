package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Events counts dispatched events
var Events = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flix_worker_events_total",
		Help: "Total number of dispatched events by kind and result",
	},
	[]string{"kind", "result"}, // result: "ok", "error", "ignored"
)
