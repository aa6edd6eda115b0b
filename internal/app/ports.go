package app

import (
	"context"

	"marvel-rag/internal/model"
)

const (
	FeatureCompareHeroes = "compare_heroes"
	FeatureMarvelAgent   = "marvel_agent"
)

type LLMClient interface {
	Ask(ctx context.Context, prompt string) (model.Answer, error)
}

// UsageSink receives the token usage of every successful LLM call.
type UsageSink interface {
	Record(ctx context.Context, feature string, answer model.Answer)
}

type nopUsageSink struct{}

func (nopUsageSink) Record(context.Context, string, model.Answer) {}

type HeroReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]model.Document, error)
}

type KnowledgeWriter interface {
	HeroReader
	All(ctx context.Context) ([]model.Document, error)
	Upsert(ctx context.Context, id, title, text string) error
}

// RefreshPublisher hands embedding refreshes to a background worker.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, event model.RefreshEvent) error
}
