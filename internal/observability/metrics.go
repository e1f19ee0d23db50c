package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MutationOutcomes counts optimistic mutations by kind and final state.
	MutationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_mutation_outcomes_total",
		Help: "Optimistic mutations by kind and outcome",
	}, []string{"kind", "outcome"})

	// TokenRefreshes counts network refresh calls (not callers) by result.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_token_refreshes_total",
		Help: "Network token refresh calls by result",
	}, []string{"result"})

	// APIRequests counts backend calls by method and status class.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_api_requests_total",
		Help: "Backend API requests by method and status class",
	}, []string{"method", "status"})

	// OfflineCacheHits counts responses served from the offline cache by strategy.
	OfflineCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carelink_offline_cache_hits_total",
		Help: "Responses served from the offline cache",
	}, []string{"strategy"})
)
