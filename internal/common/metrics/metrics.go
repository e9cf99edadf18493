// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tailor_submissions_total",
			Help: "Total number of resume submissions by terminal state",
		},
		[]string{"variant", "state"},
	)

	RewriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tailor_rewrite_duration_seconds",
			Help:    "Duration of a single completion call in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider", "outcome"},
	)

	MatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tailor_match_score",
			Help:    "Distribution of keyword match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	GrantsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_grants_issued_total",
			Help: "Total number of access grants issued",
		},
		[]string{"backend", "source"},
	)

	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_store_failures_total",
			Help: "Grant store failures, each of which denied access",
		},
		[]string{"backend", "operation"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the submission rate limiter",
		},
	)
)
