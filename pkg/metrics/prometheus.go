package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcm_calls_opened_total",
			Help: "Total number of maintenance calls opened",
		},
		[]string{"plant_id", "priority", "source"},
	)

	CallTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcm_call_transitions_total",
			Help: "Total number of call status transitions",
		},
		[]string{"plant_id", "from", "to"},
	)

	TransitionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcm_call_transition_conflicts_total",
			Help: "Total number of transitions rejected by version conflict",
		},
		[]string{"plant_id"},
	)

	RepairHours = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pcm_call_repair_hours",
			Help:    "Hours from call opening to resolution",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		},
		[]string{"plant_id", "priority"},
	)

	NotificationsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pcm_notifications_pending",
			Help: "Number of notifications waiting for relay delivery",
		},
	)

	AlertRuleTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcm_alert_rule_triggers_total",
			Help: "Total number of readings that triggered an alert rule",
		},
		[]string{"metric"},
	)
)
