package retrieval

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"marvel-rag/internal/model"
)

// LexicalRetriever ranks documents by term-frequency cosine against the query.
// It only needs the KnowledgeBase and is the last tier of every chain.
type LexicalRetriever struct {
	kb    KnowledgeBase
	scope Scope
	opts  options
}

// NewHeroLexicalRetriever returns one Context per requested hero, whatever the
// query is.
func NewHeroLexicalRetriever(kb KnowledgeBase, opts ...Option) *LexicalRetriever {
	return &LexicalRetriever{kb: kb, scope: ScopeCandidates, opts: buildOptions(opts)}
}

// NewKnowledgeLexicalRetriever searches the whole corpus. Queries without a
// usable token return no results and documents sharing no token are dropped.
func NewKnowledgeLexicalRetriever(kb KnowledgeBase, opts ...Option) *LexicalRetriever {
	return &LexicalRetriever{kb: kb, scope: ScopeCorpus, opts: buildOptions(opts)}
}

func (r *LexicalRetriever) Retrieve(ctx context.Context, req Request) ([]model.Context, error) {
	start := time.Now()
	query := TermFrequencies(Tokenize(req.Query))
	if r.scope == ScopeCorpus && len(query) == 0 {
		r.observe(ctx, start, OutcomeHit, "empty_query", 0)
		return []model.Context{}, nil
	}

	docs, err := r.scope.candidates(ctx, r.kb, req.IDs)
	if err != nil {
		r.observe(ctx, start, OutcomeError, "knowledge_base", 0)
		return nil, fmt.Errorf("load %s documents: %w", r.scope, err)
	}

	contexts := make([]model.Context, 0, len(docs))
	for _, d := range docs {
		score := Cosine(query, TermFrequencies(Tokenize(d.Title+" "+d.Text)))
		if r.scope == ScopeCorpus && score <= 0 {
			continue
		}
		contexts = append(contexts, model.NewContext(d, score))
	}
	contexts = rank(contexts, r.scope.limit(req.Limit))

	r.opts.logger.Debug("lexical retrieval",
		zap.String("scope", r.scope.String()),
		zap.Int("candidates", len(docs)),
		zap.Int("returned", len(contexts)),
	)
	r.observe(ctx, start, OutcomeHit, "", len(contexts))
	return contexts, nil
}

func (r *LexicalRetriever) observe(ctx context.Context, start time.Time, outcome, reason string, topK int) {
	r.opts.observer.ObserveRetrieval(ctx, Event{
		Tier:    TierLexical,
		Scope:   r.scope.String(),
		Outcome: outcome,
		Reason:  reason,
		Latency: time.Since(start),
		TopK:    topK,
	})
}

// rank sorts by score descending, keeping input order for ties, and keeps at
// most limit entries.
func rank(contexts []model.Context, limit int) []model.Context {
	slices.SortStableFunc(contexts, func(a, b model.Context) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(contexts) > limit {
		contexts = contexts[:limit]
	}
	return contexts
}
