package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvel-rag/internal/model"
	"marvel-rag/internal/retrieval"
)

var _ retrieval.EmbeddingStore = (*EmbeddingCache)(nil)

func newTestCache(t *testing.T, collection string) (*EmbeddingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewEmbeddingCache(client, collection), mr
}

func TestEmbeddingCache_SaveAllReplaces(t *testing.T) {
	c, mr := newTestCache(t, model.CollectionHeroes)
	ctx := context.Background()

	require.NoError(t, c.SaveAll(ctx, map[string]model.Embedding{
		"hero-1": model.NewEmbedding([]float32{1, 2}, "a"),
		"hero-2": model.NewEmbedding([]float32{3}, "b"),
	}))
	require.NoError(t, c.SaveAll(ctx, map[string]model.Embedding{
		"hero-3": model.NewEmbedding([]float32{4}, "c"),
	}))

	all, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-3"}, keys(all))
	fields, err := mr.HKeys("rag:embeddings:heroes")
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-3"}, fields)
}

func TestEmbeddingCache_LoadByIDs(t *testing.T) {
	c, mr := newTestCache(t, model.CollectionAgent)
	ctx := context.Background()
	e1 := model.NewEmbedding([]float32{0.5}, "x")
	require.NoError(t, c.SaveAll(ctx, map[string]model.Embedding{"section-1": e1}))
	mr.HSet("rag:embeddings:agent", "section-2", "[1, 2]")
	mr.HSet("rag:embeddings:agent", "section-3", "garbage")

	got, err := c.LoadByIDs(ctx, []string{"section-1", "section-2", "section-3", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Embedding{
		"section-1": e1,
		"section-2": {Vector: []float32{1, 2}},
	}, got)

	empty, err := c.LoadByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbeddingCache_SaveEmptyClears(t *testing.T) {
	c, mr := newTestCache(t, "heroes")
	ctx := context.Background()
	require.NoError(t, c.SaveAll(ctx, map[string]model.Embedding{"hero-1": {Vector: []float32{1}}}))
	require.NoError(t, c.SaveAll(ctx, map[string]model.Embedding{}))

	assert.False(t, mr.Exists("rag:embeddings:heroes"))
}

func TestEmbeddingCache_Unavailable(t *testing.T) {
	c, mr := newTestCache(t, "heroes")
	mr.Close()

	_, err := c.LoadAll(context.Background())
	require.Error(t, err)
	require.Error(t, c.SaveAll(context.Background(), map[string]model.Embedding{}))
}

func keys(m map[string]model.Embedding) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
