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

type AgentResult struct {
	Answer   string          `json:"answer"`
	Contexts []model.Context `json:"contexts"`
}

// AgentService answers free-form questions from the agent knowledge base.
type AgentService struct {
	retriever retrieval.Retriever
	llm       LLMClient
	usage     UsageSink
	limit     int
	logger    *zap.Logger
}

func NewAgentService(retriever retrieval.Retriever, llm LLMClient, usage UsageSink, limit int, logger *zap.Logger) *AgentService {
	if usage == nil {
		usage = nopUsageSink{}
	}
	if limit <= 0 {
		limit = retrieval.DefaultAgentLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{retriever: retriever, llm: llm, usage: usage, limit: limit, logger: logger}
}

func (s *AgentService) Ask(ctx context.Context, question string) (*AgentResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, invalidInput("question is empty")
	}

	contexts, err := s.retriever.Retrieve(ctx, retrieval.Request{Query: question, Limit: s.limit})
	if err != nil {
		return nil, fmt.Errorf("retrieve agent contexts failed: %w", err)
	}
	if contexts == nil {
		contexts = []model.Context{}
	}

	answer, err := s.llm.Ask(ctx, buildAgentPrompt(question, contexts))
	if err != nil {
		observability.Logger(ctx, s.logger).Error("agent llm call failed", zap.Error(err))
		return nil, llmFailure(err)
	}
	s.usage.Record(ctx, FeatureMarvelAgent, answer)

	return &AgentResult{Answer: answer.Text, Contexts: contexts}, nil
}
