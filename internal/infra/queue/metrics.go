package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Notification events published for delivery, by persisted type",
	},
	[]string{"type", "outcome"},
)
