package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"marvel-rag/internal/model"
)

// FileEmbeddingStore keeps id -> embedding in one JSON object on disk.
// A missing file is an empty store.
type FileEmbeddingStore struct {
	path string
	mu   sync.Mutex
}

func NewFileEmbeddingStore(path string) *FileEmbeddingStore {
	return &FileEmbeddingStore{path: path}
}

func (s *FileEmbeddingStore) LoadAll(context.Context) (map[string]model.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileEmbeddingStore) LoadByIDs(_ context.Context, ids []string) (map[string]model.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Embedding, len(ids))
	for _, id := range ids {
		if e, ok := all[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

// SaveAll replaces the whole file with embeddings.
func (s *FileEmbeddingStore) SaveAll(_ context.Context, embeddings map[string]model.Embedding) error {
	raw, err := json.Marshal(embeddings)
	if err != nil {
		return fmt.Errorf("encode embeddings failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, raw)
}

func (s *FileEmbeddingStore) read() (map[string]model.Embedding, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]model.Embedding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read embeddings file %s failed: %w", s.path, err)
	}
	if len(raw) == 0 {
		return map[string]model.Embedding{}, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode embeddings file %s failed: %w", s.path, err)
	}
	out := make(map[string]model.Embedding, len(entries))
	for id, entry := range entries {
		var e model.Embedding
		// Unreadable entries count as missing and get regenerated.
		if err := json.Unmarshal(entry, &e); err != nil || len(e.Vector) == 0 {
			continue
		}
		out[id] = e
	}
	return out, nil
}
