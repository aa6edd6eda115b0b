package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marvel-rag/internal/model"
	"marvel-rag/internal/observability"
	"marvel-rag/internal/retrieval"
)

// HeroContext is a retrieval result in the hero wire format.
type HeroContext struct {
	HeroID    string  `json:"heroId"`
	Nombre    string  `json:"nombre"`
	Contenido string  `json:"contenido"`
	Score     float64 `json:"score"`
}

func toHeroContexts(contexts []model.Context) []HeroContext {
	out := make([]HeroContext, len(contexts))
	for i, c := range contexts {
		out[i] = HeroContext{HeroID: c.ID, Nombre: c.Title, Contenido: c.Text, Score: c.Score}
	}
	return out
}

type CompareResult struct {
	Answer   string        `json:"answer"`
	Contexts []HeroContext `json:"contexts"`
	HeroIDs  []string      `json:"heroIds"`
}

// RAGService compares two heroes using retrieved hero knowledge.
type RAGService struct {
	heroes    HeroReader
	retriever retrieval.Retriever
	llm       LLMClient
	usage     UsageSink
	limit     int
	logger    *zap.Logger
}

type RAGOption func(*RAGService)

func WithCompareLimit(limit int) RAGOption {
	return func(s *RAGService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func WithCompareUsageSink(sink UsageSink) RAGOption {
	return func(s *RAGService) {
		if sink != nil {
			s.usage = sink
		}
	}
}

func WithCompareLogger(logger *zap.Logger) RAGOption {
	return func(s *RAGService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewRAGService(heroes HeroReader, retriever retrieval.Retriever, llm LLMClient, opts ...RAGOption) *RAGService {
	s := &RAGService{
		heroes:    heroes,
		retriever: retriever,
		llm:       llm,
		usage:     nopUsageSink{},
		limit:     retrieval.DefaultHeroLimit,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompareHeroes answers question about exactly two distinct heroes. A blank
// question asks for a general comparison.
func (s *RAGService) CompareHeroes(ctx context.Context, heroIDs []string, question string) (*CompareResult, error) {
	ids, err := validateHeroPair(heroIDs)
	if err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		question = defaultCompareQuestion
	}

	heroes, err := s.heroes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load heroes failed: %w", err)
	}
	if len(heroes) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrHeroNotFound, strings.Join(missingIDs(ids, heroes), ", "))
	}

	contexts, err := s.retriever.Retrieve(ctx, retrieval.Request{IDs: ids, Query: question, Limit: s.limit})
	if err != nil {
		return nil, fmt.Errorf("retrieve hero contexts failed: %w", err)
	}

	answer, err := s.llm.Ask(ctx, buildComparePrompt(heroes, question))
	if err != nil {
		observability.Logger(ctx, s.logger).Error("compare heroes llm call failed",
			zap.Strings("hero_ids", ids),
			zap.Error(err),
		)
		return nil, llmFailure(err)
	}
	s.usage.Record(ctx, FeatureCompareHeroes, answer)

	return &CompareResult{
		Answer:   answer.Text,
		Contexts: toHeroContexts(contexts),
		HeroIDs:  ids,
	}, nil
}

func validateHeroPair(heroIDs []string) ([]string, error) {
	if len(heroIDs) != 2 {
		return nil, invalidInput(fmt.Sprintf("select exactly 2 heroes, got %d", len(heroIDs)))
	}
	ids := retrieval.UniqueIDs(heroIDs)
	if len(ids) != 2 {
		return nil, invalidInput("select 2 different heroes")
	}
	return ids, nil
}

func missingIDs(ids []string, found []model.Document) []string {
	seen := make(map[string]struct{}, len(found))
	for _, d := range found {
		seen[d.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
