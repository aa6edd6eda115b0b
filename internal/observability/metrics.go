package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	retrieveTotal    *prometheus.CounterVec
	retrieveDuration *prometheus.HistogramVec
	llmTokens        *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		retrieveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_retrieve_total",
				Help: "Retrieval attempts by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		retrieveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rag_retrieve_duration_seconds",
				Help:    "Time spent in each retrieval tier",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"tier"},
		),
		llmTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Tokens consumed by feature and kind",
			},
			[]string{"feature", "kind"},
		),
		llmRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "LLM calls by feature and outcome",
			},
			[]string{"feature", "outcome"},
		),
	}
	reg.MustRegister(m.retrieveTotal, m.retrieveDuration, m.llmTokens, m.llmRequests)
	return m
}
