package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marvel-rag/internal/model"
)

type EmbeddingConfig struct {
	// Enabled false sends every call straight to the fallback.
	Enabled bool
	// AutoRefresh embeds candidates without a fresh stored vector and merges
	// them into the store during the read.
	AutoRefresh bool
}

// EmbeddingRetriever ranks candidates by cosine between the query embedding
// and the stored document embeddings. Any failure hands the request to the
// fallback unchanged.
//
// A Retrieve call may write to the store. Concurrent refreshes of the same
// store are last-writer-wins.
type EmbeddingRetriever struct {
	kb       KnowledgeBase
	store    EmbeddingStore
	embedder Embedder
	fallback Retriever
	scope    Scope
	cfg      EmbeddingConfig
	opts     options
}

func NewHeroEmbeddingRetriever(kb KnowledgeBase, store EmbeddingStore, embedder Embedder, fallback Retriever, cfg EmbeddingConfig, opts ...Option) *EmbeddingRetriever {
	return newEmbeddingRetriever(kb, store, embedder, fallback, ScopeCandidates, cfg, opts)
}

func NewKnowledgeEmbeddingRetriever(kb KnowledgeBase, store EmbeddingStore, embedder Embedder, fallback Retriever, cfg EmbeddingConfig, opts ...Option) *EmbeddingRetriever {
	return newEmbeddingRetriever(kb, store, embedder, fallback, ScopeCorpus, cfg, opts)
}

func newEmbeddingRetriever(kb KnowledgeBase, store EmbeddingStore, embedder Embedder, fallback Retriever, scope Scope, cfg EmbeddingConfig, opts []Option) *EmbeddingRetriever {
	return &EmbeddingRetriever{
		kb:       kb,
		store:    store,
		embedder: embedder,
		fallback: fallback,
		scope:    scope,
		cfg:      cfg,
		opts:     buildOptions(opts),
	}
}

func (r *EmbeddingRetriever) Retrieve(ctx context.Context, req Request) ([]model.Context, error) {
	start := time.Now()
	if !r.cfg.Enabled || r.embedder == nil || r.store == nil {
		return r.viaFallback(ctx, req, start, "disabled", nil)
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return r.viaFallback(ctx, req, start, "blank_query", nil)
	}
	queryVec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return r.viaFallback(ctx, req, start, "query_embedding_failed", err)
	}
	if len(queryVec) == 0 {
		return r.viaFallback(ctx, req, start, "empty_query_vector", nil)
	}

	docs, err := r.scope.candidates(ctx, r.kb, req.IDs)
	if err != nil {
		return r.viaFallback(ctx, req, start, "knowledge_base", err)
	}
	if len(docs) == 0 {
		return r.viaFallback(ctx, req, start, "no_candidates", nil)
	}

	vectors, missing := r.loadVectors(ctx, docs)
	if len(missing) > 0 && r.cfg.AutoRefresh {
		for id, e := range r.refresh(ctx, missing) {
			vectors[id] = e.Vector
		}
	}
	if len(vectors) == 0 {
		return r.viaFallback(ctx, req, start, "no_embeddings", nil)
	}
	// Hero comparisons must cover every requested hero.
	if r.scope == ScopeCandidates && len(vectors) < len(docs) {
		return r.viaFallback(ctx, req, start, "partial_embeddings", nil)
	}

	contexts := make([]model.Context, 0, len(vectors))
	for _, d := range docs {
		vec, ok := vectors[d.ID]
		if !ok {
			continue
		}
		contexts = append(contexts, model.NewContext(d, Dense(queryVec, vec)))
	}
	contexts = rank(contexts, r.scope.limit(req.Limit))

	r.observe(ctx, start, OutcomeHit, "", len(contexts))
	return contexts, nil
}

// loadVectors returns fresh stored vectors by id and the documents that have
// none. A store read error leaves every document missing.
func (r *EmbeddingRetriever) loadVectors(ctx context.Context, docs []model.Document) (map[string][]float32, []model.Document) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	stored, err := r.store.LoadByIDs(ctx, ids)
	if err != nil {
		r.opts.logger.Warn("load stored embeddings failed",
			zap.String("tier", TierEmbedding),
			zap.String("scope", r.scope.String()),
			zap.Error(err),
		)
		stored = nil
	}

	vectors := make(map[string][]float32, len(docs))
	var missing []model.Document
	for _, d := range docs {
		if e, ok := stored[d.ID]; ok && e.FreshFor(d.EmbeddingText()) {
			vectors[d.ID] = e.Vector
			continue
		}
		missing = append(missing, d)
	}
	return vectors, missing
}

// refresh embeds docs and persists the new vectors. Failures are logged and
// yield whatever could be generated.
func (r *EmbeddingRetriever) refresh(ctx context.Context, docs []model.Document) map[string]model.Embedding {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.EmbeddingText()
	}
	vectors, err := r.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		r.opts.logger.Warn("embedding refresh failed",
			zap.String("tier", TierEmbedding),
			zap.Int("missing", len(docs)),
			zap.Error(err),
		)
		return nil
	}

	generated := make(map[string]model.Embedding, len(docs))
	for i, d := range docs {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			continue
		}
		generated[d.ID] = model.NewEmbedding(vectors[i], texts[i])
	}
	if len(generated) == 0 {
		return nil
	}

	if err := MergeEmbeddings(ctx, r.store, generated); err != nil {
		r.opts.logger.Warn("persist refreshed embeddings failed",
			zap.String("tier", TierEmbedding),
			zap.Int("generated", len(generated)),
			zap.Error(err),
		)
	} else {
		r.opts.logger.Info("embeddings refreshed",
			zap.String("scope", r.scope.String()),
			zap.Int("generated", len(generated)),
		)
	}
	return generated
}

func (r *EmbeddingRetriever) viaFallback(ctx context.Context, req Request, start time.Time, reason string, cause error) ([]model.Context, error) {
	if cause != nil {
		r.opts.logger.Warn("embedding retrieval degraded",
			zap.String("tier", TierEmbedding),
			zap.String("reason", reason),
			zap.Error(cause),
		)
	} else {
		r.opts.logger.Debug("embedding retrieval skipped",
			zap.String("tier", TierEmbedding),
			zap.String("reason", reason),
		)
	}
	r.observe(ctx, start, OutcomeFallback, reason, 0)
	return r.fallback.Retrieve(ctx, req)
}

func (r *EmbeddingRetriever) observe(ctx context.Context, start time.Time, outcome, reason string, topK int) {
	r.opts.observer.ObserveRetrieval(ctx, Event{
		Tier:    TierEmbedding,
		Scope:   r.scope.String(),
		Outcome: outcome,
		Reason:  reason,
		Latency: time.Since(start),
		TopK:    topK,
	})
}

// MergeEmbeddings writes generated into store without dropping other entries.
// The store only supports whole-map saves, so this is a load, merge, save.
func MergeEmbeddings(ctx context.Context, store EmbeddingStore, generated map[string]model.Embedding) error {
	all, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings for merge: %w", err)
	}
	if all == nil {
		all = make(map[string]model.Embedding, len(generated))
	}
	for id, e := range generated {
		all[id] = e
	}
	if err := store.SaveAll(ctx, all); err != nil {
		return fmt.Errorf("save merged embeddings: %w", err)
	}
	return nil
}
