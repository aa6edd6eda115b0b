// Package ai adapts OpenAI-compatible chat and embedding endpoints to the
// interfaces used by retrieval and the orchestrators.
package ai

import (
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"marvel-rag/internal/pkg/retry"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewOpenAICompatibleClient builds a go-openai client. An empty BaseURL keeps
// the public OpenAI endpoint.
func NewOpenAICompatibleClient(cfg ClientConfig) *openai.Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(oc)
}

// classify marks client-side API errors as permanent so they are not retried.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && retry.IsPermanentStatus(apiErr.HTTPStatusCode) {
		return retry.Permanent(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && retry.IsPermanentStatus(reqErr.HTTPStatusCode) {
		return retry.Permanent(err)
	}
	return err
}
