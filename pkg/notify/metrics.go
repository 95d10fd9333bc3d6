package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsShown counts notifications handed to the host
	NotificationsShown = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_notify_shown_total",
			Help: "Total number of notifications shown",
		},
		[]string{"result"}, // "ok", "error"
	)

	// NotificationClicks counts clicks by action
	NotificationClicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flix_notify_clicks_total",
			Help: "Total number of notification clicks by action",
		},
		[]string{"action"}, // "explore", "close", "default"
	)
)
