package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReviewMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_mutations_total",
			Help: "Review ledger mutations by operation",
		},
		[]string{"op"},
	)

	Reactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_reactions_total",
			Help: "Reaction requests by resulting transition",
		},
		[]string{"outcome"},
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rating_recompute_duration_seconds",
			Help:    "Time spent recomputing a restaurant rating aggregate",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecomputeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rating_recompute_failures_total",
			Help: "Rating aggregate recomputations that failed",
		},
	)

	LeaderboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_cache_requests_total",
			Help: "Leaderboard cache lookups by result",
		},
		[]string{"result"},
	)

	FeedConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rating_feed_connections",
			Help: "Open live rating feed websocket connections",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
