// Package knowledge holds file-backed knowledge bases and the tooling that
// builds the agent knowledge base from source documents.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"marvel-rag/internal/model"
)

var ErrEmptyDocumentID = errors.New("document id is required")

// Format selects the JSON field names of a knowledge file.
type Format int

const (
	// FormatHeroes is [{"heroId","nombre","contenido"}].
	FormatHeroes Format = iota
	// FormatSections is [{"id","title","text"}].
	FormatSections
)

type heroRecord struct {
	HeroID    string `json:"heroId"`
	Nombre    string `json:"nombre"`
	Contenido string `json:"contenido"`
}

// JSONKnowledgeBase keeps a JSON knowledge file in memory and rewrites it on
// every upsert. Safe for concurrent use within one process.
type JSONKnowledgeBase struct {
	path   string
	format Format

	mu    sync.RWMutex
	order []string
	docs  map[string]model.Document
}

// OpenJSON loads path. The file must exist.
func OpenJSON(path string, format Format) (*JSONKnowledgeBase, error) {
	kb := &JSONKnowledgeBase{path: path, format: format, docs: map[string]model.Document{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file %s failed: %w", path, err)
	}
	docs, err := decode(raw, format)
	if err != nil {
		return nil, fmt.Errorf("decode knowledge file %s failed: %w", path, err)
	}
	for _, d := range docs {
		kb.put(d)
	}
	return kb, nil
}

func decode(raw []byte, format Format) ([]model.Document, error) {
	var docs []model.Document
	switch format {
	case FormatHeroes:
		var records []heroRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		for _, r := range records {
			if strings.TrimSpace(r.HeroID) == "" {
				continue
			}
			docs = append(docs, model.Document{ID: strings.TrimSpace(r.HeroID), Title: r.Nombre, Text: r.Contenido})
		}
	default:
		var records []model.Document
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		for _, r := range records {
			// Sections missing any field are skipped.
			if r.ID == "" || r.Title == "" || r.Text == "" {
				continue
			}
			docs = append(docs, r)
		}
	}
	return docs, nil
}

func (kb *JSONKnowledgeBase) put(d model.Document) {
	if _, ok := kb.docs[d.ID]; !ok {
		kb.order = append(kb.order, d.ID)
	}
	kb.docs[d.ID] = d
}

// FindByIDs returns the documents found, in the order of ids.
func (kb *JSONKnowledgeBase) FindByIDs(_ context.Context, ids []string) ([]model.Document, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := kb.docs[strings.TrimSpace(id)]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// All returns every document in file order.
func (kb *JSONKnowledgeBase) All(context.Context) ([]model.Document, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make([]model.Document, 0, len(kb.order))
	for _, id := range kb.order {
		out = append(out, kb.docs[id])
	}
	return out, nil
}

func (kb *JSONKnowledgeBase) Upsert(_ context.Context, id, title, text string) error {
	d := model.Document{ID: strings.TrimSpace(id), Title: strings.TrimSpace(title), Text: strings.TrimSpace(text)}
	if d.ID == "" {
		return ErrEmptyDocumentID
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.put(d)
	return kb.persist()
}

func (kb *JSONKnowledgeBase) persist() error {
	docs := make([]model.Document, 0, len(kb.order))
	for _, id := range kb.order {
		docs = append(docs, kb.docs[id])
	}
	return WriteJSON(kb.path, kb.format, docs)
}

// WriteJSON replaces path with docs encoded in format. The file is written to
// a temporary sibling and renamed into place.
func WriteJSON(path string, format Format, docs []model.Document) error {
	var payload any = docs
	if format == FormatHeroes {
		records := make([]heroRecord, len(docs))
		for i, d := range docs {
			records[i] = heroRecord{HeroID: d.ID, Nombre: d.Title, Contenido: d.Text}
		}
		payload = records
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge file failed: %w", err)
	}
	return writeFileAtomic(path, raw)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s failed: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s failed: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s failed: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s failed: %w", path, err)
	}
	return nil
}
