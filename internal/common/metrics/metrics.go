package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillq_turns_total",
			Help: "Total number of session turns by outcome",
		},
		[]string{"outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillq_turn_duration_seconds",
			Help:    "Duration of a session turn in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skillq_candidates_scored_total",
			Help: "Total number of candidates scored",
		},
	)

	CandidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillq_candidates_excluded_total",
			Help: "Total number of candidates excluded from rankings",
		},
		[]string{"reason"},
	)

	ClarificationsAsked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillq_clarifications_asked_total",
			Help: "Clarifying questions asked per filter dimension",
		},
		[]string{"dimension"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skillq_active_sessions",
			Help: "Number of open ranking sessions",
		},
	)

	StoreFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "skillq_store_fetch_duration_seconds",
			Help: "Duration of candidate record store fetches in seconds",
		},
		[]string{"backend", "status"},
	)
)
