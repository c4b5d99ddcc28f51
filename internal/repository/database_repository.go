package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type DatabaseConnectionRepository struct {
	db *gorm.DB
}

func NewDatabaseConnectionRepository(db *gorm.DB) *DatabaseConnectionRepository {
	return &DatabaseConnectionRepository{db: db}
}

func (r *DatabaseConnectionRepository) Create(ctx context.Context, conn *model.DatabaseConnection) error {
	if err := r.db.WithContext(ctx).Create(conn).Error; err != nil {
		return fmt.Errorf("create database connection failed: %w", err)
	}
	return nil
}

func (r *DatabaseConnectionRepository) GetByID(ctx context.Context, id uint) (*model.DatabaseConnection, error) {
	var conn model.DatabaseConnection
	if err := r.db.WithContext(ctx).First(&conn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get database connection failed: %w", err)
	}
	return &conn, nil
}

func (r *DatabaseConnectionRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.DatabaseConnection, error) {
	var conn model.DatabaseConnection
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get database connection failed: %w", err)
	}
	return &conn, nil
}

func (r *DatabaseConnectionRepository) ListByUserID(ctx context.Context, userID uint) ([]model.DatabaseConnection, error) {
	var list []model.DatabaseConnection
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list database connections failed: %w", err)
	}
	return list, nil
}

func (r *DatabaseConnectionRepository) ListAll(ctx context.Context) ([]model.DatabaseConnection, error) {
	var list []model.DatabaseConnection
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list all database connections failed: %w", err)
	}
	return list, nil
}

// Delete removes a connection. userID 0 skips the ownership check.
// It reports whether a row was removed.
func (r *DatabaseConnectionRepository) Delete(ctx context.Context, id, userID uint) (bool, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	res := q.Delete(&model.DatabaseConnection{})
	if res.Error != nil {
		return false, fmt.Errorf("delete database connection failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *DatabaseConnectionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DatabaseConnection{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count database connections failed: %w", err)
	}
	return n, nil
}

type QueryHistoryRepository struct {
	db *gorm.DB
}

func NewQueryHistoryRepository(db *gorm.DB) *QueryHistoryRepository {
	return &QueryHistoryRepository{db: db}
}

func (r *QueryHistoryRepository) Create(ctx context.Context, h *model.QueryHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("create query history failed: %w", err)
	}
	return nil
}

// ListRecentByUserID returns the newest limit entries for the user.
func (r *QueryHistoryRepository) ListRecentByUserID(ctx context.Context, userID uint, limit int) ([]model.QueryHistory, error) {
	var list []model.QueryHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list query history failed: %w", err)
	}
	return list, nil
}
