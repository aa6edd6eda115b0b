// Package pinecone talks to a hosted Pinecone index over its data-plane REST API.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"marvel-rag/internal/pkg/retry"
	"marvel-rag/internal/retrieval"
)

// maxResponseSize limits the index response body.
const maxResponseSize = 4 * 1024 * 1024

type Config struct {
	APIKey  string
	Host    string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	retry      retry.Config
}

type Option func(*Client)

func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a client for the index at cfg.Host. Hosts without a scheme get
// https.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    normalizeHost(cfg.Host),
		retry:      retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host
}

type Metadata struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

type Vector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string   `json:"id"`
		Score    float64  `json:"score"`
		Metadata Metadata `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest stored vectors, best first.
func (c *Client) Query(ctx context.Context, vector []float32, topK int) ([]retrieval.IndexMatch, error) {
	var parsed queryResponse
	if err := c.post(ctx, "/query", queryRequest{Vector: vector, TopK: topK, IncludeMetadata: true}, &parsed); err != nil {
		return nil, err
	}
	matches := make([]retrieval.IndexMatch, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		matches = append(matches, retrieval.IndexMatch{
			ID:    m.ID,
			Score: m.Score,
			Title: m.Metadata.Title,
			Text:  m.Metadata.Text,
		})
	}
	return matches, nil
}

// Upsert writes vectors in batches of batchSize and returns the number the
// index reports as upserted.
func (c *Client) Upsert(ctx context.Context, vectors []Vector, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	total := 0
	for start := 0; start < len(vectors); start += batchSize {
		end := min(start+batchSize, len(vectors))
		var parsed struct {
			UpsertedCount int `json:"upsertedCount"`
		}
		body := map[string]any{"vectors": vectors[start:end]}
		if err := c.post(ctx, "/vectors/upsert", body, &parsed); err != nil {
			return total, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		total += parsed.UpsertedCount
	}
	return total, nil
}

// Ping checks that the index answers describe_index_stats.
func (c *Client) Ping(ctx context.Context) error {
	var ignored json.RawMessage
	return c.post(ctx, "/describe_index_stats", map[string]any{}, &ignored)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.apiKey == "" || c.baseURL == "" {
		return fmt.Errorf("pinecone index not configured")
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal pinecone request failed: %w", err)
	}

	err = retry.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return retry.Permanent(fmt.Errorf("build pinecone request failed: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("pinecone request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return fmt.Errorf("read pinecone response failed: %w", err)
		}
		if resp.StatusCode >= 300 {
			statusErr := fmt.Errorf("pinecone response status %d: %s", resp.StatusCode, string(raw))
			if retry.IsPermanentStatus(resp.StatusCode) {
				return retry.Permanent(statusErr)
			}
			return statusErr
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return retry.Permanent(fmt.Errorf("parse pinecone json failed: %w", err))
		}
		return nil
	})
	return err
}
