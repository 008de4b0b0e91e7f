package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_model_calls_total",
			Help: "Total number of external model calls by agent type and outcome",
		},
		[]string{"agent", "provider", "outcome"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "valuation_model_call_duration_seconds",
			Help:    "Duration of external model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"agent", "provider"},
	)

	MarketDataFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_market_data_fetches_total",
			Help: "Market multiple fetches by result (first_attempt, retried, unavailable)",
		},
		[]string{"result"},
	)

	IntentsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_intents_applied_total",
			Help: "Chat intents applied to a snapshot, by intent kind",
		},
		[]string{"kind"},
	)

	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_chat_turns_total",
			Help: "Chat turns by outcome",
		},
		[]string{"outcome"},
	)

	QuickValuations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_quick_total",
			Help: "Quick valuation requests by outcome",
		},
		[]string{"outcome"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valuation_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route",
		},
		[]string{"route"},
	)
)
