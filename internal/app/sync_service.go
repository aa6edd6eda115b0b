package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"marvel-rag/internal/model"
	"marvel-rag/internal/observability"
	"marvel-rag/internal/platform/pinecone"
	"marvel-rag/internal/retrieval"
)

// SyncService keeps one collection's knowledge and embeddings in step.
type SyncService struct {
	collection string
	kb         KnowledgeWriter
	store      retrieval.EmbeddingStore
	embedder   retrieval.Embedder
	publisher  RefreshPublisher
	embeddings bool
	logger     *zap.Logger
}

type SyncOption func(*SyncService)

// WithEmbeddings enables embedding maintenance against store.
func WithEmbeddings(store retrieval.EmbeddingStore, embedder retrieval.Embedder) SyncOption {
	return func(s *SyncService) {
		s.store = store
		s.embedder = embedder
		s.embeddings = store != nil && embedder != nil
	}
}

// WithRefreshPublisher moves embedding refreshes after an upsert to a worker.
func WithRefreshPublisher(p RefreshPublisher) SyncOption {
	return func(s *SyncService) {
		s.publisher = p
	}
}

func WithSyncLogger(logger *zap.Logger) SyncOption {
	return func(s *SyncService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSyncService(collection string, kb KnowledgeWriter, opts ...SyncOption) *SyncService {
	s := &SyncService{collection: collection, kb: kb, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SyncService) Collection() string {
	return s.collection
}

// UpsertHero stores the hero and refreshes its embedding. Embedding problems
// are logged, never returned.
func (s *SyncService) UpsertHero(ctx context.Context, id, name, text string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidInput("hero id is required")
	}
	if err := s.kb.Upsert(ctx, id, name, text); err != nil {
		return fmt.Errorf("upsert hero failed: %w", err)
	}
	if !s.embeddings {
		return nil
	}

	logger := observability.Logger(ctx, s.logger)
	if s.publisher != nil {
		err := s.publisher.PublishRefresh(ctx, model.RefreshEvent{
			TraceID:     observability.TraceID(ctx),
			Collection:  s.collection,
			IDs:         []string{id},
			RequestedAt: time.Now().UTC(),
		})
		if err == nil {
			return nil
		}
		logger.Warn("publish embedding refresh failed, refreshing inline", zap.String("hero_id", id), zap.Error(err))
	}

	if _, err := s.RefreshEmbeddings(ctx, []string{id}); err != nil {
		logger.Warn("hero embedding refresh failed", zap.String("hero_id", id), zap.Error(err))
	}
	return nil
}

// RefreshEmbeddings re-embeds ids and merges the vectors into the store. It
// returns how many embeddings were written.
func (s *SyncService) RefreshEmbeddings(ctx context.Context, ids []string) (int, error) {
	if !s.embeddings {
		return 0, nil
	}
	docs, err := s.kb.FindByIDs(ctx, retrieval.UniqueIDs(ids))
	if err != nil {
		return 0, fmt.Errorf("load documents failed: %w", err)
	}
	generated, err := s.embed(ctx, docs)
	if err != nil {
		return 0, err
	}
	if len(generated) == 0 {
		return 0, nil
	}
	if err := retrieval.MergeEmbeddings(ctx, s.store, generated); err != nil {
		return 0, err
	}
	return len(generated), nil
}

// RebuildEmbeddings embeds every document and replaces the whole store.
func (s *SyncService) RebuildEmbeddings(ctx context.Context) (int, error) {
	if !s.embeddings {
		return 0, fmt.Errorf("embeddings are not configured for %s", s.collection)
	}
	docs, err := s.kb.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load documents failed: %w", err)
	}
	generated, err := s.embed(ctx, docs)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveAll(ctx, generated); err != nil {
		return 0, fmt.Errorf("save embeddings failed: %w", err)
	}
	return len(generated), nil
}

type IndexUpserter interface {
	Upsert(ctx context.Context, vectors []pinecone.Vector, batchSize int) (int, error)
}

// SyncIndex embeds every document and upserts it, with title and text as
// metadata, into the remote index.
func (s *SyncService) SyncIndex(ctx context.Context, index IndexUpserter, batchSize int) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("embeddings are not configured for %s", s.collection)
	}
	docs, err := s.kb.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load documents failed: %w", err)
	}
	generated, err := s.embed(ctx, docs)
	if err != nil {
		return 0, err
	}
	vectors := make([]pinecone.Vector, 0, len(generated))
	for _, d := range docs {
		e, ok := generated[d.ID]
		if !ok {
			continue
		}
		vectors = append(vectors, pinecone.Vector{
			ID:       d.ID,
			Values:   e.Vector,
			Metadata: pinecone.Metadata{Title: d.Title, Text: d.Text},
		})
	}
	n, err := index.Upsert(ctx, vectors, batchSize)
	if err != nil {
		return n, fmt.Errorf("upsert index failed: %w", err)
	}
	return n, nil
}

func (s *SyncService) embed(ctx context.Context, docs []model.Document) (map[string]model.Embedding, error) {
	if len(docs) == 0 {
		return map[string]model.Embedding{}, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.EmbeddingText()
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s documents failed: %w", s.collection, err)
	}
	out := make(map[string]model.Embedding, len(docs))
	for i, d := range docs {
		if i < len(vectors) && len(vectors[i]) > 0 {
			out[d.ID] = model.NewEmbedding(vectors[i], texts[i])
		}
	}
	return out, nil
}
