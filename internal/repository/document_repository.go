package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// ListByIDsAndUserID returns the subset of ids owned by userID.
func (r *DocumentRepository) ListByIDsAndUserID(ctx context.Context, ids []uint, userID uint) ([]model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Document
	if err := r.db.WithContext(ctx).Where("id IN ? AND user_id = ?", ids, userID).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents by ids failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}

// ReplaceChunks swaps the document's chunks for chunks and marks it embedded,
// all in one transaction.
func (r *DocumentRepository) ReplaceChunks(ctx context.Context, documentID uint, chunks []model.DocumentChunk) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
			return fmt.Errorf("delete old chunks failed: %w", err)
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(&chunks, 100).Error; err != nil {
				return fmt.Errorf("insert chunks failed: %w", err)
			}
		}
		err := tx.Model(&model.Document{}).Where("id = ?", documentID).Updates(map[string]interface{}{
			"chunk_count":      len(chunks),
			"embedding_status": true,
		}).Error
		if err != nil {
			return fmt.Errorf("update document ingest status failed: %w", err)
		}
		return nil
	})
}

// DeleteWithChunks removes the document and its chunks. It reports false when
// the document does not exist or is not owned by userID.
func (r *DocumentRepository) DeleteWithChunks(ctx context.Context, id, userID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Document{})
		if res.Error != nil {
			return fmt.Errorf("delete document failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Where("document_id = ?", id).Delete(&model.DocumentChunk{}).Error; err != nil {
			return fmt.Errorf("delete document chunks failed: %w", err)
		}
		return nil
	})
	return deleted, err
}
