package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvel-rag/internal/model"
)

func speedKB() *memKB {
	return newMemKB(
		heroDoc("hero-1", "fuerza"),
		heroDoc("hero-2", "fuerza y velocidad"),
		heroDoc("hero-3", "sigilo"),
	)
}

func storedFor(docs ...model.Document) map[string]model.Embedding {
	out := map[string]model.Embedding{}
	for _, d := range docs {
		out[d.ID] = model.NewEmbedding(keywordVector(d.EmbeddingText()), d.EmbeddingText())
	}
	return out
}

var allHeroes = []string{"hero-1", "hero-2", "hero-3"}

func TestEmbedding_DisabledDelegatesUntouched(t *testing.T) {
	embedder := &fakeEmbedder{}
	fallback := &countingRetriever{result: []model.Context{{ID: "hero-3", Score: 0.25}}}
	r := NewHeroEmbeddingRetriever(speedKB(), newMemStore(nil), embedder, fallback, EmbeddingConfig{Enabled: false, AutoRefresh: true})

	got, err := r.Retrieve(context.Background(), Request{IDs: allHeroes, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, fallback.result, got)
	assert.Equal(t, 1, fallback.calls)
	assert.Zero(t, embedder.calls())
}

func TestEmbedding_FullStoreNeverFallsBack(t *testing.T) {
	kb := speedKB()
	store := newMemStore(storedFor(kb.docs...))
	embedder := &fakeEmbedder{}
	fallback := &countingRetriever{}
	obs := &recordingObserver{}
	r := NewHeroEmbeddingRetriever(kb, store, embedder, fallback, EmbeddingConfig{Enabled: true, AutoRefresh: true}, WithObserver(obs))

	got, err := r.Retrieve(context.Background(), Request{IDs: allHeroes, Query: "fuerza velocidad", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-2", "hero-1"}, contextIDs(got))
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Zero(t, fallback.calls)
	assert.Zero(t, embedder.batchCalls)
	assert.Zero(t, store.saves)

	require.Len(t, obs.events, 1)
	assert.Equal(t, Event{Tier: TierEmbedding, Scope: "candidates", Outcome: OutcomeHit, TopK: 2, Latency: obs.events[0].Latency}, obs.events[0])
}

func TestEmbedding_AutoRefreshPersistsExactlyMissing(t *testing.T) {
	kb := speedKB()
	unrelated := model.NewEmbedding([]float32{9, 9, 9, 9, 9}, "otro")
	initial := storedFor(kb.docs[0])
	initial["hero-99"] = unrelated
	store := newMemStore(initial)
	embedder := &fakeEmbedder{}
	fallback := &countingRetriever{}
	r := NewHeroEmbeddingRetriever(kb, store, embedder, fallback, EmbeddingConfig{Enabled: true, AutoRefresh: true})

	got, err := r.Retrieve(context.Background(), Request{IDs: allHeroes, Query: "fuerza velocidad"})
	require.NoError(t, err)

	assert.Equal(t, []string{"hero-2", "hero-1", "hero-3"}, contextIDs(got))
	assert.Zero(t, fallback.calls)
	require.Len(t, embedder.batches, 1)
	assert.Equal(t, []string{"fuerza y velocidad", "sigilo"}, embedder.batches[0])

	assert.ElementsMatch(t, []string{"hero-1", "hero-2", "hero-3", "hero-99"}, store.ids())
	assert.Equal(t, unrelated, store.data["hero-99"])
	assert.Equal(t, initial["hero-1"], store.data["hero-1"])
	assert.True(t, store.data["hero-2"].FreshFor("fuerza y velocidad"))
	assert.Equal(t, 1, store.saves)
}

func TestEmbedding_StaleHashIsRefreshed(t *testing.T) {
	kb := speedKB()
	initial := storedFor(kb.docs...)
	initial["hero-1"] = model.NewEmbedding([]float32{0, 0, 1, 0, 0}, "sigilo")
	store := newMemStore(initial)
	embedder := &fakeEmbedder{}
	r := NewHeroEmbeddingRetriever(kb, store, embedder, &countingRetriever{}, EmbeddingConfig{Enabled: true, AutoRefresh: true})

	got, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", "hero-3"}, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-1", "hero-3"}, contextIDs(got))
	require.Len(t, embedder.batches, 1)
	assert.Equal(t, []string{"fuerza"}, embedder.batches[0])
	assert.True(t, store.data["hero-1"].FreshFor("fuerza"))
}

func TestEmbedding_LegacyVectorWithoutHashIsTrusted(t *testing.T) {
	kb := speedKB()
	store := newMemStore(map[string]model.Embedding{
		"hero-1": {Vector: []float32{1, 0, 0, 0, 0}},
		"hero-3": {Vector: []float32{0, 0, 1, 0, 0}},
	})
	embedder := &fakeEmbedder{}
	r := NewHeroEmbeddingRetriever(kb, store, embedder, &countingRetriever{}, EmbeddingConfig{Enabled: true, AutoRefresh: true})

	_, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", "hero-3"}, Query: "sigilo"})
	require.NoError(t, err)
	assert.Zero(t, embedder.batchCalls)
}

func TestEmbedding_EmptyQueryVectorFallsBack(t *testing.T) {
	kb := speedKB()
	store := newMemStore(storedFor(kb.docs...))
	fallback := &countingRetriever{result: []model.Context{{ID: "lexical"}}}
	r := NewHeroEmbeddingRetriever(kb, store, &fakeEmbedder{queryVec: []float32{}}, fallback, EmbeddingConfig{Enabled: true, AutoRefresh: true})

	got, err := r.Retrieve(context.Background(), Request{IDs: allHeroes, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, fallback.result, got)
	assert.Equal(t, 1, fallback.calls)
}

func TestEmbedding_QueryEmbeddingErrorFallsBack(t *testing.T) {
	kb := speedKB()
	fallback := &countingRetriever{}
	r := NewHeroEmbeddingRetriever(kb, newMemStore(storedFor(kb.docs...)), &fakeEmbedder{textErr: errBoom}, fallback, EmbeddingConfig{Enabled: true})

	_, err := r.Retrieve(context.Background(), Request{IDs: allHeroes, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
}

func TestEmbedding_HeroScopeMissingWithoutRefreshFallsBack(t *testing.T) {
	kb := speedKB()
	store := newMemStore(storedFor(kb.docs[0]))
	embedder := &fakeEmbedder{}
	fallback := &countingRetriever{}
	r := NewHeroEmbeddingRetriever(kb, store, embedder, fallback, EmbeddingConfig{Enabled: true, AutoRefresh: false})

	_, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", "hero-2"}, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	assert.Zero(t, embedder.batchCalls)
	assert.Equal(t, []string{"hero-1"}, store.ids())
}

func TestEmbedding_RefreshFailureFallsBack(t *testing.T) {
	kb := speedKB()
	store := newMemStore(nil)
	fallback := &countingRetriever{}
	r := NewHeroEmbeddingRetriever(kb, store, &fakeEmbedder{batchErr: errBoom}, fallback, EmbeddingConfig{Enabled: true, AutoRefresh: true})

	_, err := r.Retrieve(context.Background(), Request{IDs: allHeroes, Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	assert.Empty(t, store.ids())
}

func TestEmbedding_PersistFailureStillRanks(t *testing.T) {
	kb := speedKB()
	store := newMemStore(nil)
	store.saveErr = errBoom
	fallback := &countingRetriever{}
	r := NewHeroEmbeddingRetriever(kb, store, &fakeEmbedder{}, fallback, EmbeddingConfig{Enabled: true, AutoRefresh: true})

	got, err := r.Retrieve(context.Background(), Request{IDs: []string{"hero-1", "hero-3"}, Query: "sigilo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hero-3", "hero-1"}, contextIDs(got))
	assert.Zero(t, fallback.calls)
	assert.Empty(t, store.ids())
}

func TestEmbedding_CorpusScopeScoresAvailableVectors(t *testing.T) {
	kb := newMemKB(
		model.Document{ID: "section-1", Title: "Fuerza", Text: "fuerza"},
		model.Document{ID: "section-2", Title: "Sigilo", Text: "sigilo"},
	)
	store := newMemStore(storedFor(kb.docs[0]))
	fallback := &countingRetriever{}
	r := NewKnowledgeEmbeddingRetriever(kb, store, &fakeEmbedder{}, fallback, EmbeddingConfig{Enabled: true})

	got, err := r.Retrieve(context.Background(), Request{Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, []string{"section-1"}, contextIDs(got))
	assert.Zero(t, fallback.calls)
}

func TestEmbedding_CorpusScopeEmptyStoreFallsBack(t *testing.T) {
	kb := newMemKB(model.Document{ID: "section-1", Title: "Fuerza", Text: "fuerza"})
	fallback := &countingRetriever{}
	r := NewKnowledgeEmbeddingRetriever(kb, newMemStore(nil), &fakeEmbedder{}, fallback, EmbeddingConfig{Enabled: true})

	_, err := r.Retrieve(context.Background(), Request{Query: "fuerza"})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
}

func TestMergeEmbeddings_PreservesOtherEntries(t *testing.T) {
	store := newMemStore(map[string]model.Embedding{"a": {Vector: []float32{1}}})

	err := MergeEmbeddings(context.Background(), store, map[string]model.Embedding{"b": {Vector: []float32{2}}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, store.ids())
}
