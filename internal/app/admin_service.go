package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/repository"
)

const (
	defaultUserPageSize = 100
	maxUserPageSize     = 500
)

type AdminService struct {
	userRepo    *repository.UserRepository
	roleRepo    *repository.RoleRepository
	permRepo    *repository.PermissionRepository
	docRepo     *repository.DocumentRepository
	connRepo    *repository.DatabaseConnectionRepository
	targets     TargetOpener
	schemaCache SchemaCache
}

func NewAdminService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	permRepo *repository.PermissionRepository,
	docRepo *repository.DocumentRepository,
	connRepo *repository.DatabaseConnectionRepository,
	targets TargetOpener,
	schemaCache SchemaCache,
) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		permRepo:    permRepo,
		docRepo:     docRepo,
		connRepo:    connRepo,
		targets:     targets,
		schemaCache: schemaCache,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, skip, limit int, search string) ([]model.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	return s.userRepo.List(ctx, skip, limit, strings.TrimSpace(search))
}

// GetUser returns the user with its assigned roles populated.
func (s *AdminService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.mustUser(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.userRepo.ListRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

type UpdateUserInput struct {
	Email    *string
	Password *string
	IsActive *bool
	IsAdmin  *bool
}

func (s *AdminService) UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*model.User, error) {
	user, err := s.mustUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil {
		user.Email = optionalString(*input.Email)
	}
	if input.Password != nil {
		if len(*input.Password) < minPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	if _, err := s.mustUser(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	ctxzap.Info(ctx, "user deleted", zap.Uint("user_id", id), zap.Uint("actor_id", actorID))
	return nil
}

// AssignUserRoles replaces the user's assigned roles.
func (s *AdminService) AssignUserRoles(ctx context.Context, id uint, roleIDs []uint) ([]model.Role, error) {
	if _, err := s.mustUser(ctx, id); err != nil {
		return nil, err
	}
	roles := make([]model.Role, 0, len(roleIDs))
	for _, rid := range dedupe(roleIDs) {
		role, err := s.roleRepo.GetByID(ctx, rid)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, apperr.NotFound(fmt.Sprintf("role with id %d not found", rid))
		}
		roles = append(roles, *role)
	}
	if err := s.userRepo.ReplaceRoles(ctx, id, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *AdminService) ListUserRoles(ctx context.Context, id uint) ([]model.Role, error) {
	if _, err := s.mustUser(ctx, id); err != nil {
		return nil, err
	}
	return s.userRepo.ListRoles(ctx, id)
}

func (s *AdminService) ListUserPermissions(ctx context.Context, id uint) ([]model.Permission, error) {
	if _, err := s.mustUser(ctx, id); err != nil {
		return nil, err
	}
	return s.userRepo.ListPermissions(ctx, id)
}

func (s *AdminService) mustUser(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AdminService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.roleRepo.List(ctx)
}

type RoleInput struct {
	Name        *string
	Description *string
}

func (s *AdminService) CreateRole(ctx context.Context, input RoleInput) (*model.Role, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperr.Validation("role name is required")
	}
	name := strings.TrimSpace(*input.Name)
	existing, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRoleExists
	}
	role := &model.Role{Name: name}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// GetRole returns the role with its permissions populated.
func (s *AdminService) GetRole(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.mustRole(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.roleRepo.ListPermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return role, nil
}

func (s *AdminService) UpdateRole(ctx context.Context, id uint, input RoleInput) (*model.Role, error) {
	role, err := s.mustRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation("role name is required")
		}
		if name != role.Name {
			other, err := s.roleRepo.GetByName(ctx, name)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, ErrRoleExists
			}
			role.Name = name
		}
	}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *AdminService) DeleteRole(ctx context.Context, id uint) error {
	if _, err := s.mustRole(ctx, id); err != nil {
		return err
	}
	return s.roleRepo.Delete(ctx, id)
}

// AssignRolePermissions replaces the role's permission grants.
func (s *AdminService) AssignRolePermissions(ctx context.Context, id uint, permissionIDs []uint) ([]model.Permission, error) {
	if _, err := s.mustRole(ctx, id); err != nil {
		return nil, err
	}
	perms := make([]model.Permission, 0, len(permissionIDs))
	for _, pid := range dedupe(permissionIDs) {
		perm, err := s.permRepo.GetByID(ctx, pid)
		if err != nil {
			return nil, err
		}
		if perm == nil {
			return nil, apperr.NotFound(fmt.Sprintf("permission with id %d not found", pid))
		}
		perms = append(perms, *perm)
	}
	if err := s.roleRepo.ReplacePermissions(ctx, id, perms); err != nil {
		return nil, err
	}
	return perms, nil
}

func (s *AdminService) ListRolePermissions(ctx context.Context, id uint) ([]model.Permission, error) {
	if _, err := s.mustRole(ctx, id); err != nil {
		return nil, err
	}
	return s.roleRepo.ListPermissions(ctx, id)
}

func (s *AdminService) mustRole(ctx context.Context, id uint) (*model.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (s *AdminService) ListPermissions(ctx context.Context, resource string) ([]model.Permission, error) {
	return s.permRepo.List(ctx, strings.TrimSpace(resource))
}

type PermissionInput struct {
	Name        *string
	Description *string
	Resource    *string
	Action      *string
}

func (s *AdminService) CreatePermission(ctx context.Context, input PermissionInput) (*model.Permission, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperr.Validation("permission name is required")
	}
	name := strings.TrimSpace(*input.Name)
	existing, err := s.permRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPermissionExists
	}
	perm := &model.Permission{Name: name}
	applyPermissionInput(perm, input)
	if err := s.permRepo.Create(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *AdminService) GetPermission(ctx context.Context, id uint) (*model.Permission, error) {
	return s.mustPermission(ctx, id)
}

func (s *AdminService) UpdatePermission(ctx context.Context, id uint, input PermissionInput) (*model.Permission, error) {
	perm, err := s.mustPermission(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation("permission name is required")
		}
		if name != perm.Name {
			other, err := s.permRepo.GetByName(ctx, name)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, ErrPermissionExists
			}
			perm.Name = name
		}
	}
	applyPermissionInput(perm, input)
	if err := s.permRepo.Update(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *AdminService) DeletePermission(ctx context.Context, id uint) error {
	if _, err := s.mustPermission(ctx, id); err != nil {
		return err
	}
	return s.permRepo.Delete(ctx, id)
}

func (s *AdminService) mustPermission(ctx context.Context, id uint) (*model.Permission, error) {
	perm, err := s.permRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if perm == nil {
		return nil, ErrPermissionNotFound
	}
	return perm, nil
}

func applyPermissionInput(perm *model.Permission, input PermissionInput) {
	if input.Description != nil {
		perm.Description = *input.Description
	}
	if input.Resource != nil {
		perm.Resource = strings.TrimSpace(*input.Resource)
	}
	if input.Action != nil {
		perm.Action = strings.TrimSpace(*input.Action)
	}
}

func (s *AdminService) ListAllConnections(ctx context.Context) ([]model.DatabaseConnection, error) {
	return s.connRepo.ListAll(ctx)
}

func (s *AdminService) ListUserConnections(ctx context.Context, userID uint) ([]model.DatabaseConnection, error) {
	if _, err := s.mustUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.connRepo.ListByUserID(ctx, userID)
}

// DeleteConnection removes any user's connection and drops its pool.
func (s *AdminService) DeleteConnection(ctx context.Context, id uint) error {
	deleted, err := s.connRepo.Delete(ctx, id, 0)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrConnectionNotFound
	}
	forgetConnection(ctx, s.targets, s.schemaCache, id)
	return nil
}

type DashboardStats struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveUsers      int64 `json:"active_users"`
	TotalDocuments   int64 `json:"total_documents"`
	TotalDatabases   int64 `json:"total_databases"`
	TotalRoles       int64 `json:"total_roles"`
	TotalPermissions int64 `json:"total_permissions"`
}

func (s *AdminService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	var err error
	if stats.TotalUsers, err = s.userRepo.Count(ctx, false); err != nil {
		return nil, err
	}
	if stats.ActiveUsers, err = s.userRepo.Count(ctx, true); err != nil {
		return nil, err
	}
	if stats.TotalDocuments, err = s.docRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalDatabases, err = s.connRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalRoles, err = s.roleRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalPermissions, err = s.permRepo.Count(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// forgetConnection releases pooled and cached state for a removed connection.
func forgetConnection(ctx context.Context, targets TargetOpener, schemas SchemaCache, id uint) {
	if targets != nil {
		targets.Forget(id)
	}
	if schemas != nil {
		if err := schemas.InvalidateConnection(ctx, id); err != nil {
			ctxzap.Extract(ctx).Warn("schema cache invalidation failed", zap.Uint("connection_id", id), zap.Error(err))
		}
	}
}
