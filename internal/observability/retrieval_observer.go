package observability

import (
	"context"

	"go.uber.org/zap"

	"marvel-rag/internal/retrieval"
)

// RetrievalObserver exports retrieval events as metrics and debug logs.
type RetrievalObserver struct {
	metrics *Metrics
	logger  *zap.Logger
}

func NewRetrievalObserver(metrics *Metrics, logger *zap.Logger) *RetrievalObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalObserver{metrics: metrics, logger: logger}
}

func (o *RetrievalObserver) ObserveRetrieval(ctx context.Context, ev retrieval.Event) {
	if o.metrics != nil {
		o.metrics.retrieveTotal.WithLabelValues(ev.Tier, ev.Outcome).Inc()
		o.metrics.retrieveDuration.WithLabelValues(ev.Tier).Observe(ev.Latency.Seconds())
	}
	Logger(ctx, o.logger).Debug("retrieval",
		zap.String("tier", ev.Tier),
		zap.String("scope", ev.Scope),
		zap.String("outcome", ev.Outcome),
		zap.String("reason", ev.Reason),
		zap.Int("top_k", ev.TopK),
		zap.Duration("latency", ev.Latency),
	)
}
