package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(ctx context.Context, perm *model.Permission) error {
	if err := r.db.WithContext(ctx).Create(perm).Error; err != nil {
		return fmt.Errorf("create permission failed: %w", err)
	}
	return nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id uint) (*model.Permission, error) {
	var perm model.Permission
	if err := r.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get permission failed: %w", err)
	}
	return &perm, nil
}

func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*model.Permission, error) {
	var perm model.Permission
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get permission by name failed: %w", err)
	}
	return &perm, nil
}

// List returns all permissions, optionally filtered by resource.
func (r *PermissionRepository) List(ctx context.Context, resource string) ([]model.Permission, error) {
	q := r.db.WithContext(ctx).Model(&model.Permission{})
	if resource != "" {
		q = q.Where("resource = ?", resource)
	}
	var perms []model.Permission
	if err := q.Order("id ASC").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("list permissions failed: %w", err)
	}
	return perms, nil
}

func (r *PermissionRepository) Update(ctx context.Context, perm *model.Permission) error {
	if err := r.db.WithContext(ctx).Save(perm).Error; err != nil {
		return fmt.Errorf("update permission failed: %w", err)
	}
	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM role_permissions WHERE permission_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete permission grants failed: %w", err)
		}
		if err := tx.Delete(&model.Permission{}, id).Error; err != nil {
			return fmt.Errorf("delete permission failed: %w", err)
		}
		return nil
	})
}

func (r *PermissionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Permission{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count permissions failed: %w", err)
	}
	return n, nil
}
