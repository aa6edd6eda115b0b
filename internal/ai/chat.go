package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"marvel-rag/internal/model"
	"marvel-rag/internal/pkg/retry"
)

const narratorSystemPrompt = "Eres un narrador profesional que describe comparaciones entre héroes. " +
	"Mantienes un estilo directo, claro y apto para audio, sin emojis, sin símbolos y sin acentos épicos."

var (
	ErrEmptyCompletion = errors.New("empty llm completion")
	ErrCircuitOpen     = errors.New("llm circuit open")
)

type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxCalls int
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, OpenTimeout: 30 * time.Second, HalfOpenMaxCalls: 1}
}

// ChatClient asks a chat completion model a single-turn question. Calls are
// retried with backoff and guarded by a circuit breaker that opens after
// consecutive failed asks.
type ChatClient struct {
	client       *openai.Client
	model        string
	systemPrompt string
	retry        retry.Config
	breaker      *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

type ChatOption func(*ChatClient)

func WithSystemPrompt(prompt string) ChatOption {
	return func(c *ChatClient) {
		c.systemPrompt = prompt
	}
}

func WithChatRetry(cfg retry.Config) ChatOption {
	return func(c *ChatClient) {
		c.retry = cfg
	}
}

func WithChatLogger(logger *zap.Logger) ChatOption {
	return func(c *ChatClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewChatClient(client *openai.Client, chatModel string, breaker BreakerConfig, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		client:       client,
		model:        chatModel,
		systemPrompt: narratorSystemPrompt,
		retry:        retry.DefaultConfig(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	threshold := breaker.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultBreakerConfig().FailureThreshold
	}
	halfOpen := breaker.HalfOpenMaxCalls
	if halfOpen <= 0 {
		halfOpen = 1
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: uint32(halfOpen),
		Timeout:     breaker.OpenTimeout,
		IsSuccessful: func(err error) bool {
			var gone callerGoneError
			return err == nil || errors.As(err, &gone)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

func (c *ChatClient) Ask(ctx context.Context, prompt string) (model.Answer, error) {
	if err := ctx.Err(); err != nil {
		return model.Answer{}, fmt.Errorf("llm completion failed: %w", err)
	}
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var answer model.Answer
		err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
			resp, err := c.client.CreateChatCompletion(ctx, req)
			if err != nil {
				return classify(err)
			}
			if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
				return ErrEmptyCompletion
			}
			answer = model.Answer{
				Text:  resp.Choices[0].Message.Content,
				Model: resp.Model,
				Usage: model.Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}
			return nil
		})
		if err != nil && ctx.Err() != nil {
			err = callerGoneError{err: err}
		}
		return answer, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return model.Answer{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return model.Answer{}, fmt.Errorf("llm completion failed: %w", err)
	}
	answer := out.(model.Answer)
	if answer.Model == "" {
		answer.Model = c.model
	}
	return answer, nil
}

// callerGoneError marks a failure caused by the caller's own context ending.
// The breaker does not hold it against the model; per-attempt timeouts still
// count because the caller context outlives them.
type callerGoneError struct {
	err error
}

func (e callerGoneError) Error() string { return e.err.Error() }

func (e callerGoneError) Unwrap() error { return e.err }
