package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type ChatHistoryRepository struct {
	db *gorm.DB
}

func NewChatHistoryRepository(db *gorm.DB) *ChatHistoryRepository {
	return &ChatHistoryRepository{db: db}
}

func (r *ChatHistoryRepository) Create(ctx context.Context, history *model.ChatHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return fmt.Errorf("create chat history failed: %w", err)
	}
	return nil
}

// ListByUserID lists the user's histories, most recently active first.
// An empty agentType lists all types.
func (r *ChatHistoryRepository) ListByUserID(ctx context.Context, userID uint, agentType string) ([]model.ChatHistory, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if agentType != "" {
		q = q.Where("agent_type = ?", agentType)
	}
	var list []model.ChatHistory
	if err := q.Order("updated_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list chat histories failed: %w", err)
	}
	return list, nil
}

func (r *ChatHistoryRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.ChatHistory, error) {
	var history model.ChatHistory
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat history failed: %w", err)
	}
	return &history, nil
}

func (r *ChatHistoryRepository) Touch(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&model.ChatHistory{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch chat history failed: %w", err)
	}
	return nil
}

// DeleteWithMessages removes the history and its messages. It reports false
// when the history does not exist or is not owned by userID.
func (r *ChatHistoryRepository) DeleteWithMessages(ctx context.Context, id, userID uint) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.ChatHistory{})
		if res.Error != nil {
			return fmt.Errorf("delete chat history failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Where("chat_history_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete chat messages failed: %w", err)
		}
		return nil
	})
	return deleted, err
}
