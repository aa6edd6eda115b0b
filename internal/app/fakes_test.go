package app

import (
	"context"
	"errors"
	"maps"
	"sync"

	"marvel-rag/internal/model"
	"marvel-rag/internal/platform/pinecone"
	"marvel-rag/internal/retrieval"
)

var errBoom = errors.New("boom")

type memKB struct {
	mu        sync.Mutex
	docs      map[string]model.Document
	order     []string
	findCalls int
	err       error
}

func newMemKB(docs ...model.Document) *memKB {
	kb := &memKB{docs: map[string]model.Document{}}
	for _, d := range docs {
		kb.docs[d.ID] = d
		kb.order = append(kb.order, d.ID)
	}
	return kb
}

func (k *memKB) FindByIDs(_ context.Context, ids []string) ([]model.Document, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.findCalls++
	if k.err != nil {
		return nil, k.err
	}
	var out []model.Document
	for _, id := range ids {
		if d, ok := k.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (k *memKB) All(context.Context) ([]model.Document, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]model.Document, 0, len(k.order))
	for _, id := range k.order {
		out = append(out, k.docs[id])
	}
	return out, nil
}

func (k *memKB) Upsert(_ context.Context, id, title, text string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.err != nil {
		return k.err
	}
	if _, ok := k.docs[id]; !ok {
		k.order = append(k.order, id)
	}
	k.docs[id] = model.Document{ID: id, Title: title, Text: text}
	return nil
}

type memStore struct {
	data map[string]model.Embedding
}

func (s *memStore) LoadAll(context.Context) (map[string]model.Embedding, error) {
	return maps.Clone(s.data), nil
}

func (s *memStore) LoadByIDs(_ context.Context, ids []string) (map[string]model.Embedding, error) {
	out := map[string]model.Embedding{}
	for _, id := range ids {
		if e, ok := s.data[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (s *memStore) SaveAll(_ context.Context, m map[string]model.Embedding) error {
	s.data = maps.Clone(m)
	return nil
}

type stubEmbedder struct {
	calls int
	err   error
}

func (e *stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	e.calls++
	return []float32{1, 0}, e.err
}

func (e *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type stubRetriever struct {
	calls    int
	last     retrieval.Request
	contexts []model.Context
	err      error
}

func (r *stubRetriever) Retrieve(_ context.Context, req retrieval.Request) ([]model.Context, error) {
	r.calls++
	r.last = req
	return r.contexts, r.err
}

type stubLLM struct {
	calls   int
	prompts []string
	answer  model.Answer
	err     error
}

func (l *stubLLM) Ask(_ context.Context, prompt string) (model.Answer, error) {
	l.calls++
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return model.Answer{}, l.err
	}
	return l.answer, nil
}

type recordingSink struct {
	features []string
	answers  []model.Answer
}

func (s *recordingSink) Record(_ context.Context, feature string, answer model.Answer) {
	s.features = append(s.features, feature)
	s.answers = append(s.answers, answer)
}

type stubPublisher struct {
	events []model.RefreshEvent
	err    error
}

func (p *stubPublisher) PublishRefresh(_ context.Context, ev model.RefreshEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type stubIndex struct {
	vectors []pinecone.Vector
}

func (i *stubIndex) Upsert(_ context.Context, vectors []pinecone.Vector, _ int) (int, error) {
	i.vectors = append(i.vectors, vectors...)
	return len(vectors), nil
}
