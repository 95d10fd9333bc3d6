package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PrecacheAssets tracks manifest assets by pre-cache result
	PrecacheAssets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_lifecycle_precache_assets_total",
			Help: "Total manifest assets processed during install",
		},
		[]string{"result"}, // "ok", "error"
	)

	// PartitionsDeleted tracks partitions removed during activation
	PartitionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flix_lifecycle_partitions_deleted_total",
			Help: "Total partitions deleted during activation",
		},
	)

	// CurrentState exposes the controller state as a number (see State)
	CurrentState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flix_lifecycle_state",
			Help: "Current lifecycle state (0=parsed, 1=installing, 2=installed, 3=activating, 4=activated)",
		},
	)
)
