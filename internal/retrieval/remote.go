package retrieval

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"marvel-rag/internal/model"
)

// IndexMatch is one ranked result of a hosted vector index.
type IndexMatch struct {
	ID    string
	Score float64
	Title string
	Text  string
}

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]IndexMatch, error)
}

// RemoteIndexConfig holds the index credentials. Both must be set for the
// remote tier to be tried at all.
type RemoteIndexConfig struct {
	APIKey string
	Host   string
}

func (c RemoteIndexConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.Host) != ""
}

// RemoteIndexRetriever asks a hosted vector index for the top matches of the
// query embedding and returns them as ranked by the index.
type RemoteIndexRetriever struct {
	embedder Embedder
	index    VectorIndex
	fallback Retriever
	cfg      RemoteIndexConfig
	opts     options
}

func NewRemoteIndexRetriever(embedder Embedder, index VectorIndex, fallback Retriever, cfg RemoteIndexConfig, opts ...Option) *RemoteIndexRetriever {
	return &RemoteIndexRetriever{
		embedder: embedder,
		index:    index,
		fallback: fallback,
		cfg:      cfg,
		opts:     buildOptions(opts),
	}
}

func (r *RemoteIndexRetriever) Retrieve(ctx context.Context, req Request) ([]model.Context, error) {
	start := time.Now()
	if !r.cfg.Configured() || r.index == nil || r.embedder == nil {
		return r.viaFallback(ctx, req, start, "not_configured", nil)
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return r.viaFallback(ctx, req, start, "blank_query", nil)
	}
	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return r.viaFallback(ctx, req, start, "query_embedding_failed", err)
	}
	if len(vector) == 0 {
		return r.viaFallback(ctx, req, start, "empty_query_vector", nil)
	}

	matches, err := r.index.Query(ctx, vector, ScopeCorpus.limit(req.Limit))
	if err != nil {
		return r.viaFallback(ctx, req, start, "index_query_failed", err)
	}

	contexts := make([]model.Context, 0, len(matches))
	for _, m := range matches {
		// Matches without stored text cannot be quoted back to the model.
		if m.ID == "" || m.Text == "" {
			continue
		}
		contexts = append(contexts, model.NewContext(model.Document{ID: m.ID, Title: m.Title, Text: m.Text}, m.Score))
	}
	if len(contexts) == 0 {
		return r.viaFallback(ctx, req, start, "no_matches", nil)
	}

	r.opts.observer.ObserveRetrieval(ctx, Event{
		Tier:    TierRemote,
		Scope:   ScopeCorpus.String(),
		Outcome: OutcomeHit,
		Latency: time.Since(start),
		TopK:    len(contexts),
	})
	return contexts, nil
}

func (r *RemoteIndexRetriever) viaFallback(ctx context.Context, req Request, start time.Time, reason string, cause error) ([]model.Context, error) {
	if cause != nil {
		r.opts.logger.Warn("remote index retrieval degraded",
			zap.String("tier", TierRemote),
			zap.String("reason", reason),
			zap.Error(cause),
		)
	} else {
		r.opts.logger.Debug("remote index retrieval skipped",
			zap.String("tier", TierRemote),
			zap.String("reason", reason),
		)
	}
	r.opts.observer.ObserveRetrieval(ctx, Event{
		Tier:    TierRemote,
		Scope:   ScopeCorpus.String(),
		Outcome: OutcomeFallback,
		Reason:  reason,
		Latency: time.Since(start),
	})
	return r.fallback.Retrieve(ctx, req)
}
