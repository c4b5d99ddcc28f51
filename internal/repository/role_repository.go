package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, role *model.Role) error {
	if err := r.db.WithContext(ctx).Omit("Permissions").Create(role).Error; err != nil {
		return fmt.Errorf("create role failed: %w", err)
	}
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role failed: %w", err)
	}
	return &role, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role by name failed: %w", err)
	}
	return &role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *model.Role) error {
	if err := r.db.WithContext(ctx).Omit("Permissions").Save(role).Error; err != nil {
		return fmt.Errorf("update role failed: %w", err)
	}
	return nil
}

// Delete removes the role, its permission grants and all user assignments.
func (r *RoleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE role_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete role assignments failed: %w", err)
		}
		if err := tx.Model(&model.User{}).Where("role_id = ?", id).Update("role_id", nil).Error; err != nil {
			return fmt.Errorf("clear primary role failed: %w", err)
		}
		if err := tx.Select("Permissions").Delete(&model.Role{ID: id}).Error; err != nil {
			return fmt.Errorf("delete role failed: %w", err)
		}
		return nil
	})
}

func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID uint, perms []model.Permission) error {
	assoc := r.db.WithContext(ctx).Model(&model.Role{ID: roleID}).Association("Permissions")
	var err error
	if len(perms) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(perms)
	}
	if err != nil {
		return fmt.Errorf("replace role permissions failed: %w", err)
	}
	return nil
}

// AddPermission grants perm to the role if it is not already granted.
func (r *RoleRepository) AddPermission(ctx context.Context, roleID uint, perm *model.Permission) error {
	if err := r.db.WithContext(ctx).Model(&model.Role{ID: roleID}).Association("Permissions").Append(perm); err != nil {
		return fmt.Errorf("add role permission failed: %w", err)
	}
	return nil
}

func (r *RoleRepository) ListPermissions(ctx context.Context, roleID uint) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id ASC").
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("list role permissions failed: %w", err)
	}
	return perms, nil
}

func (r *RoleRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Role{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count roles failed: %w", err)
	}
	return n, nil
}
