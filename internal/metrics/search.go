package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and provider Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcore",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"engine", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankcore",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"engine"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcore",
			Name:      "engine_fallbacks_total",
			Help:      "Total primary-engine fallbacks",
		},
		[]string{"reason"}, // "timeout" / "error"
	)

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcore",
			Name:      "provider_requests_total",
			Help:      "Total embedding/reranker provider requests",
		},
		[]string{"provider", "status"},
	)

	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rankcore",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcore",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ShadowComparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcore",
			Name:      "shadow_comparisons_total",
			Help:      "Total shadow comparisons run",
		},
		[]string{"status"},
	)

	IntentGuardTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rankcore",
			Name:      "intent_guard_applied_total",
			Help:      "Times the core-intent guard reordered the top result",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderDuration)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(ShadowComparisonsTotal)
	prometheus.MustRegister(IntentGuardTotal)
	searchMetricsRegistered = true
}
