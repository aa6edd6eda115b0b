// Package retrieval ranks knowledge documents against a query.
//
// Every strategy implements Retriever and most take another Retriever as a
// fallback, so tiers compose into a chain:
//
//	RemoteIndexRetriever -> EmbeddingRetriever -> LexicalRetriever
//
// Failures of any tier other than the last are recovered locally by handing
// the same Request to the next tier. LexicalRetriever depends on nothing but
// the KnowledgeBase and terminates every chain.
package retrieval

import (
	"context"
	"strings"

	"marvel-rag/internal/model"
)

const (
	DefaultHeroLimit  = 5
	DefaultAgentLimit = 3
)

// Request describes one retrieval call. IDs restricts the candidates for
// candidate-scoped retrievers and is ignored by corpus-scoped ones.
// Limit <= 0 selects the scope default.
type Request struct {
	IDs   []string
	Query string
	Limit int
}

type Retriever interface {
	Retrieve(ctx context.Context, req Request) ([]model.Context, error)
}

type KnowledgeBase interface {
	FindByIDs(ctx context.Context, ids []string) ([]model.Document, error)
	All(ctx context.Context) ([]model.Document, error)
}

// EmbeddingStore persists document id -> embedding. SaveAll replaces the
// whole store; callers merge into the result of LoadAll first.
type EmbeddingStore interface {
	LoadAll(ctx context.Context) (map[string]model.Embedding, error)
	LoadByIDs(ctx context.Context, ids []string) (map[string]model.Embedding, error)
	SaveAll(ctx context.Context, embeddings map[string]model.Embedding) error
}

// Embedder may fail, time out or return an empty vector; retrievers treat
// all three the same way.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Scope decides where candidates come from.
type Scope int

const (
	// ScopeCandidates ranks only the documents named in Request.IDs and
	// returns one Context per document found.
	ScopeCandidates Scope = iota
	// ScopeCorpus searches every document in the knowledge base.
	ScopeCorpus
)

func (s Scope) String() string {
	if s == ScopeCorpus {
		return "corpus"
	}
	return "candidates"
}

func (s Scope) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	if s == ScopeCorpus {
		return DefaultAgentLimit
	}
	return DefaultHeroLimit
}

func (s Scope) candidates(ctx context.Context, kb KnowledgeBase, ids []string) ([]model.Document, error) {
	if s == ScopeCorpus {
		return kb.All(ctx)
	}
	unique := UniqueIDs(ids)
	if len(unique) == 0 {
		return nil, nil
	}
	return kb.FindByIDs(ctx, unique)
}

// UniqueIDs trims ids and drops blanks and duplicates, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
