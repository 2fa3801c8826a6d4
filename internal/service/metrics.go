package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_feed_recomputes_total",
			Help: "Total number of notification feed recomputations",
		},
		[]string{"trigger"},
	)

	recomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_feed_recompute_duration_seconds",
			Help:    "Notification feed recomputation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
