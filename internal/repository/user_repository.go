package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agentic-rag/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByMobile(ctx context.Context, mobile string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("mobile_number = ?", mobile).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by mobile failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Omit("Roles").Save(user).Error; err != nil {
		return fmt.Errorf("update user failed: %w", err)
	}
	return nil
}

// Delete removes the user and its role assignments.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Select("Roles").Delete(&model.User{ID: id}).Error; err != nil {
		return fmt.Errorf("delete user failed: %w", err)
	}
	return nil
}

// List pages through users; search matches mobile number or email as a substring.
func (r *UserRepository) List(ctx context.Context, skip, limit int, search string) ([]model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("mobile_number LIKE ? OR email LIKE ?", like, like)
	}
	var users []model.User
	if err := q.Order("id ASC").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users failed: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users failed: %w", err)
	}
	return n, nil
}

// ReplaceRoles sets the user's role assignments to exactly roles. The join
// rows are written directly so the primary role_id is never touched.
func (r *UserRepository) ReplaceRoles(ctx context.Context, userID uint, roles []model.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE user_id = ?", userID).Error; err != nil {
			return fmt.Errorf("clear user roles failed: %w", err)
		}
		if len(roles) == 0 {
			return nil
		}
		rows := make([]map[string]interface{}, 0, len(roles))
		for _, role := range roles {
			rows = append(rows, map[string]interface{}{"user_id": userID, "role_id": role.ID})
		}
		if err := tx.Table("user_roles").Create(rows).Error; err != nil {
			return fmt.Errorf("replace user roles failed: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) ListRoles(ctx context.Context, userID uint) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("list user roles failed: %w", err)
	}
	return roles, nil
}

// ListPermissions returns the distinct union of permissions granted through the
// user's assigned roles and its primary role.
func (r *UserRepository) ListPermissions(ctx context.Context, userID uint) ([]model.Permission, error) {
	db := r.db.WithContext(ctx)
	assigned := db.Table("user_roles").Select("role_id").Where("user_id = ?", userID)
	primary := db.Model(&model.User{}).Select("role_id").Where("id = ? AND role_id IS NOT NULL", userID)

	var perms []model.Permission
	err := db.Model(&model.Permission{}).
		Select("DISTINCT permissions.*").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id IN (?) OR role_permissions.role_id IN (?)", assigned, primary).
		Order("permissions.id ASC").
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("list user permissions failed: %w", err)
	}
	return perms, nil
}
