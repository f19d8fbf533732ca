// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoreComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_score_computations_total",
			Help: "Total number of oracle scoring calls by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	ScoresCached = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_scores_cached_total",
			Help: "Total number of score records upserted into the store",
		},
	)

	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_refresh_duration_seconds",
			Help:    "Duration of score refresh runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"scope"},
	)

	RefreshSubjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_refresh_subjects_total",
			Help: "Subjects processed by refresh runs by outcome",
		},
		[]string{"outcome"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_recommendations_total",
			Help: "Recommendation requests served by tier",
		},
		[]string{"tier"},
	)

	Invalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_invalidations_total",
			Help: "Subject score invalidations",
		},
	)
)
