package model

import (
	"strings"
	"time"
)

// Document is a retrievable unit of knowledge: a hero record (ID = hero id)
// or a knowledge-base section (ID = section-N).
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// EmbeddingText is the exact text sent to the embedding model for d.
func (d Document) EmbeddingText() string {
	return strings.TrimSpace(d.Title + "\n\n" + d.Text)
}

// Context is one ranked retrieval result. Document fields are copied verbatim
// from the knowledge base.
type Context struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// NewContext copies d into a Context carrying score.
func NewContext(d Document, score float64) Context {
	return Context{ID: d.ID, Title: d.Title, Text: d.Text, Score: score}
}

// KnowledgeDocument is the MySQL row behind a Document.
// Collection separates heroes from agent KB sections.
type KnowledgeDocument struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Collection string    `gorm:"size:32;not null;uniqueIndex:idx_collection_doc" json:"collection"`
	DocID      string    `gorm:"size:128;not null;uniqueIndex:idx_collection_doc" json:"doc_id"`
	Title      string    `gorm:"size:256;not null" json:"title"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (KnowledgeDocument) TableName() string {
	return "rag_knowledge_documents"
}

// Document converts the row into its domain form.
func (k KnowledgeDocument) Document() Document {
	return Document{ID: k.DocID, Title: k.Title, Text: k.Text}
}

// Collections stored in rag_knowledge_documents.
const (
	CollectionHeroes = "heroes"
	CollectionAgent  = "agent"
)
