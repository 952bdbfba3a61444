package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ranking Prometheus metrics.
var (
	RankingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_requests_total",
			Help:      "Ranking requests by operation and the engine that answered",
		},
		[]string{"operation", "engine"},
	)

	RankingFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_fallbacks_total",
			Help:      "Strategies skipped in the fallback chain, by reason",
		},
		[]string{"operation", "strategy", "reason"},
	)

	RankingUpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_upstream_duration_seconds",
			Help:      "Latency of upstream calls made while ranking",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source", "status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	IndexingOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexing_operations_total",
			Help:      "Video indexing operations by kind and outcome",
		},
		[]string{"operation", "status"},
	)
)

var rankingMetricsRegistered bool

// RegisterRankingMetrics registers ranking, breaker and indexing metrics. Must be called once from main.
func RegisterRankingMetrics() {
	if rankingMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		RankingRequestsTotal,
		RankingFallbacksTotal,
		RankingUpstreamDuration,
		CircuitBreakerState,
		CircuitBreakerTransitions,
		IndexingOperationsTotal,
	)
	rankingMetricsRegistered = true
}

// ObserveUpstream records the latency of one upstream call.
func ObserveUpstream(source string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RankingUpstreamDuration.WithLabelValues(source, status).Observe(time.Since(start).Seconds())
}
