package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stepchallenge_sync_ticks_total",
		Help: "Completed background sync ticks.",
	})

	syncStageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepchallenge_sync_stage_errors_total",
		Help: "Swallowed per-stage errors inside sync ticks.",
	}, []string{"stage"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stepchallenge_notifications_total",
		Help: "Notifications emitted, by kind.",
	}, []string{"kind"})

	syncTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stepchallenge_sync_tick_duration_seconds",
		Help:    "Wall time of one full sync tick across all users.",
		Buckets: prometheus.DefBuckets,
	})
)
