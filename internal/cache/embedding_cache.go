package cache

import (
	"context"
	"encoding/json"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"

	"marvel-rag/internal/model"
)

// EmbeddingCache stores one collection's embeddings in a Redis hash, one
// field per document id.
type EmbeddingCache struct {
	client *redisv9.Client
	key    string
}

func NewEmbeddingCache(client *redisv9.Client, collection string) *EmbeddingCache {
	return &EmbeddingCache{client: client, key: embeddingsKey(collection)}
}

func (c *EmbeddingCache) LoadAll(ctx context.Context) (map[string]model.Embedding, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load embeddings failed: %w", err)
	}
	out := make(map[string]model.Embedding, len(fields))
	for id, raw := range fields {
		if e, ok := decodeEmbedding(raw); ok {
			out[id] = e
		}
	}
	return out, nil
}

func (c *EmbeddingCache) LoadByIDs(ctx context.Context, ids []string) (map[string]model.Embedding, error) {
	out := make(map[string]model.Embedding, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	values, err := c.client.HMGet(ctx, c.key, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load embeddings by id failed: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if e, ok := decodeEmbedding(raw); ok {
			out[ids[i]] = e
		}
	}
	return out, nil
}

// SaveAll replaces the hash atomically.
func (c *EmbeddingCache) SaveAll(ctx context.Context, embeddings map[string]model.Embedding) error {
	values := make(map[string]any, len(embeddings))
	for id, e := range embeddings {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal embedding %s failed: %w", id, err)
		}
		values[id] = payload
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Del(ctx, c.key)
		if len(values) > 0 {
			pipe.HSet(ctx, c.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save embeddings failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func decodeEmbedding(raw string) (model.Embedding, bool) {
	var e model.Embedding
	if err := json.Unmarshal([]byte(raw), &e); err != nil || len(e.Vector) == 0 {
		return model.Embedding{}, false
	}
	return e, true
}

func embeddingsKey(collection string) string {
	return fmt.Sprintf("rag:embeddings:%s", collection)
}
