package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marvel-rag/internal/model"
)

var ErrEmptyDocumentID = errors.New("document id is required")

// DocumentRepository is a KnowledgeBase over one collection of the
// rag_knowledge_documents table.
type DocumentRepository struct {
	db         *gorm.DB
	collection string
}

func NewDocumentRepository(db *gorm.DB, collection string) *DocumentRepository {
	return &DocumentRepository{db: db, collection: collection}
}

// FindByIDs returns the documents found, in the order of ids.
func (r *DocumentRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.KnowledgeDocument
	if err := r.db.WithContext(ctx).
		Where("collection = ? AND doc_id IN ?", r.collection, ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find %s documents failed: %w", r.collection, err)
	}

	byID := make(map[string]model.Document, len(rows))
	for _, row := range rows {
		byID[row.DocID] = row.Document()
	}
	docs := make([]model.Document, 0, len(rows))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			docs = append(docs, d)
			delete(byID, id)
		}
	}
	return docs, nil
}

func (r *DocumentRepository) All(ctx context.Context) ([]model.Document, error) {
	var rows []model.KnowledgeDocument
	if err := r.db.WithContext(ctx).
		Where("collection = ?", r.collection).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s documents failed: %w", r.collection, err)
	}
	docs := make([]model.Document, len(rows))
	for i, row := range rows {
		docs[i] = row.Document()
	}
	return docs, nil
}

func (r *DocumentRepository) Upsert(ctx context.Context, id, title, text string) error {
	row := model.KnowledgeDocument{
		Collection: r.collection,
		DocID:      strings.TrimSpace(id),
		Title:      strings.TrimSpace(title),
		Text:       strings.TrimSpace(text),
	}
	if row.DocID == "" {
		return ErrEmptyDocumentID
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "text", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert %s document failed: %w", r.collection, err)
	}
	return nil
}

// Ping reports whether the database answers.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get mysql sql db failed: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
