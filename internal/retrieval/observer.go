package retrieval

import (
	"context"
	"time"
)

const (
	TierLexical   = "lexical"
	TierEmbedding = "embedding"
	TierRemote    = "remote_index"

	OutcomeHit      = "hit"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Event is reported once per tier per Retrieve call.
type Event struct {
	Tier    string
	Scope   string
	Outcome string
	Reason  string
	Latency time.Duration
	TopK    int
}

type Observer interface {
	ObserveRetrieval(ctx context.Context, ev Event)
}

type nopObserver struct{}

func (nopObserver) ObserveRetrieval(context.Context, Event) {}
