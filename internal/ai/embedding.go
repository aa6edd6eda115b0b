package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"marvel-rag/internal/pkg/retry"
)

// DashScope and similar APIs often limit batch size.
const defaultEmbeddingBatchSize = 10

var ErrEmptyEmbeddingInput = errors.New("embedding input is empty")

type Embedder struct {
	client    *openai.Client
	model     string
	batchSize int
	retry     retry.Config
}

type EmbedderOption func(*Embedder)

func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithEmbedRetry(cfg retry.Config) EmbedderOption {
	return func(e *Embedder) {
		e.retry = cfg
	}
}

func NewEmbedder(client *openai.Client, embeddingModel string, opts ...EmbedderOption) *Embedder {
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}
	e := &Embedder{
		client:    client,
		model:     embeddingModel,
		batchSize: defaultEmbeddingBatchSize,
		retry:     retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EmbedText returns the embedding vector for the given text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyEmbeddingInput
	}
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments returns one vector per text in input order. Blank texts are
// not sent and get a nil vector.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))

	var (
		batch     []string
		positions []int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		vectors, err := e.embed(ctx, batch)
		if err != nil {
			return err
		}
		for i, pos := range positions {
			result[pos] = vectors[i]
		}
		batch, positions = batch[:0], positions[:0]
		return nil
	}

	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		batch = append(batch, t)
		positions = append(positions, i)
		if len(batch) == e.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Embedder) embed(ctx context.Context, input []string) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(ctx, e.retry, func(ctx context.Context) error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: input,
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return classify(err)
		}
		out := make([][]float32, len(input))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(out) {
				return retry.Permanent(fmt.Errorf("embedding index %d out of range", d.Index))
			}
			out[d.Index] = d.Embedding
		}
		for i, v := range out {
			if len(v) == 0 {
				return fmt.Errorf("empty embedding for input %d", i)
			}
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	return vectors, nil
}
