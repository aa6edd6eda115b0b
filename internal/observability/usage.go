package observability

import (
	"context"
	"time"

	"go.uber.org/zap"

	"marvel-rag/internal/model"
)

// TokenUsageRecorder logs and counts the tokens of successful LLM calls.
type TokenUsageRecorder struct {
	metrics *Metrics
	logger  *zap.Logger
	skipLog bool
}

// NewTokenUsageRecorder builds a recorder. skipLog drops the log line but
// keeps the counters.
func NewTokenUsageRecorder(metrics *Metrics, logger *zap.Logger, skipLog bool) *TokenUsageRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenUsageRecorder{metrics: metrics, logger: logger, skipLog: skipLog}
}

func (r *TokenUsageRecorder) Record(ctx context.Context, feature string, answer model.Answer) {
	if r.metrics != nil {
		r.metrics.llmTokens.WithLabelValues(feature, "prompt").Add(float64(answer.Usage.PromptTokens))
		r.metrics.llmTokens.WithLabelValues(feature, "completion").Add(float64(answer.Usage.CompletionTokens))
	}
	if r.skipLog {
		return
	}
	Logger(ctx, r.logger).Info("llm token usage",
		zap.String("feature", feature),
		zap.String("model", answer.Model),
		zap.Int("prompt_tokens", answer.Usage.PromptTokens),
		zap.Int("completion_tokens", answer.Usage.CompletionTokens),
		zap.Int("total_tokens", answer.Usage.TotalTokens),
	)
}

type llmClient interface {
	Ask(ctx context.Context, prompt string) (model.Answer, error)
}

// InstrumentedLLM counts calls and failures of next under feature.
type InstrumentedLLM struct {
	next    llmClient
	feature string
	metrics *Metrics
	logger  *zap.Logger
}

func InstrumentLLM(next llmClient, feature string, metrics *Metrics, logger *zap.Logger) *InstrumentedLLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedLLM{next: next, feature: feature, metrics: metrics, logger: logger}
}

func (l *InstrumentedLLM) Ask(ctx context.Context, prompt string) (model.Answer, error) {
	start := time.Now()
	answer, err := l.next.Ask(ctx, prompt)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if l.metrics != nil {
		l.metrics.llmRequests.WithLabelValues(l.feature, outcome).Inc()
	}
	Logger(ctx, l.logger).Debug("llm call",
		zap.String("feature", l.feature),
		zap.String("outcome", outcome),
		zap.Duration("latency", time.Since(start)),
	)
	return answer, err
}
