package retrieval

import (
	"context"
	"errors"
	"maps"
	"sync"

	"marvel-rag/internal/model"
)

type memKB struct {
	docs []model.Document
	err  error
}

func newMemKB(docs ...model.Document) *memKB {
	return &memKB{docs: docs}
}

func (k *memKB) FindByIDs(_ context.Context, ids []string) ([]model.Document, error) {
	if k.err != nil {
		return nil, k.err
	}
	var out []model.Document
	for _, id := range ids {
		for _, d := range k.docs {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (k *memKB) All(context.Context) ([]model.Document, error) {
	if k.err != nil {
		return nil, k.err
	}
	return append([]model.Document(nil), k.docs...), nil
}

type memStore struct {
	mu      sync.Mutex
	data    map[string]model.Embedding
	saves   int
	saveErr error
}

func newMemStore(data map[string]model.Embedding) *memStore {
	if data == nil {
		data = map[string]model.Embedding{}
	}
	return &memStore{data: data}
}

func (s *memStore) LoadAll(context.Context) (map[string]model.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data), nil
}

func (s *memStore) LoadByIDs(_ context.Context, ids []string) (map[string]model.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]model.Embedding{}
	for _, id := range ids {
		if e, ok := s.data[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (s *memStore) SaveAll(_ context.Context, embeddings map[string]model.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.data = maps.Clone(embeddings)
	return nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.data))
	for id := range s.data {
		out = append(out, id)
	}
	return out
}

var vocabulary = []string{"fuerza", "velocidad", "sigilo", "volar", "espionaje"}

// keywordVector maps text onto a fixed vocabulary so similar texts get
// similar vectors.
func keywordVector(text string) []float32 {
	tf := TermFrequencies(Tokenize(text))
	vec := make([]float32, len(vocabulary))
	for i, w := range vocabulary {
		vec[i] = float32(tf[w])
	}
	return vec
}

type fakeEmbedder struct {
	mu         sync.Mutex
	textCalls  int
	batchCalls int
	batches    [][]string
	queryVec   []float32
	textErr    error
	batchErr   error
}

func (e *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.textCalls++
	if e.textErr != nil {
		return nil, e.textErr
	}
	if e.queryVec != nil {
		return e.queryVec, nil
	}
	return keywordVector(text), nil
}

func (e *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchCalls++
	e.batches = append(e.batches, texts)
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (e *fakeEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.textCalls + e.batchCalls
}

type countingRetriever struct {
	calls  int
	result []model.Context
	err    error
}

func (r *countingRetriever) Retrieve(context.Context, Request) ([]model.Context, error) {
	r.calls++
	return r.result, r.err
}

type fakeIndex struct {
	calls   int
	topK    int
	matches []IndexMatch
	err     error
}

func (i *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]IndexMatch, error) {
	i.calls++
	i.topK = topK
	return i.matches, i.err
}

type recordingObserver struct {
	events []Event
}

func (o *recordingObserver) ObserveRetrieval(_ context.Context, ev Event) {
	o.events = append(o.events, ev)
}

var errBoom = errors.New("boom")

func heroDoc(id, text string) model.Document {
	return model.Document{ID: id, Text: text}
}

func contextIDs(contexts []model.Context) []string {
	ids := make([]string, len(contexts))
	for i, c := range contexts {
		ids[i] = c.ID
	}
	return ids
}
