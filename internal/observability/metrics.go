package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "attendry", Name: "submissions_total", Help: "Attendance submissions by phase"},
		[]string{"phase"},
	)
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "attendry", Name: "classifications_total", Help: "Automatic proximity classifications by tier"},
		[]string{"tier"},
	)
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "attendry", Name: "manual_verifications_total", Help: "Manual verification actions by outcome"},
		[]string{"action"},
	)
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "attendry", Name: "rate_limit_rejections_total", Help: "Requests denied by a rate limit policy"},
		[]string{"policy"},
	)

	SweepTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "attendry", Name: "sweep_transitions_total", Help: "Events completed by the lifecycle sweep"})
	FeedClients           = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "attendry", Name: "feed_clients", Help: "Connected live feed clients"})

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "attendry",
			Name:      "sweep_duration_seconds",
			Help:      "Lifecycle sweep latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
