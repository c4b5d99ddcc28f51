package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ListByDocumentIDs returns all chunks for the given document IDs ordered by id.
// Caller should filter document IDs by user ownership.
func (r *ChunkRepository) ListByDocumentIDs(ctx context.Context, documentIDs []uint) ([]model.DocumentChunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).Where("document_id IN ?", documentIDs).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document ids failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Where("document_id = ?", documentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return n, nil
}
