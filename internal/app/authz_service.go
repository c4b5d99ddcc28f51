package app

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"agentic-rag/internal/model"
	"agentic-rag/internal/repository"
)

type permissionDef struct {
	name, description, resource, action string
}

var defaultPermissions = []permissionDef{
	{model.AdminPermissionName, "Access the admin API", "admin", "access"},
	{"manage_users", "Create, update and delete users", "users", "manage"},
	{"manage_roles", "Create, update and delete roles", "roles", "manage"},
	{"manage_permissions", "Create, update and delete permissions", "permissions", "manage"},
	{"manage_databases", "Manage registered database connections", "databases", "manage"},
	{"manage_documents", "Manage uploaded documents", "documents", "manage"},
	{"view_analytics", "View dashboard statistics", "dashboard", "read"},
}

// AuthzService answers role and permission checks. Permissions are read from
// the database on every call.
type AuthzService struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	permRepo *repository.PermissionRepository
}

func NewAuthzService(userRepo *repository.UserRepository, roleRepo *repository.RoleRepository, permRepo *repository.PermissionRepository) *AuthzService {
	return &AuthzService{userRepo: userRepo, roleRepo: roleRepo, permRepo: permRepo}
}

// IsAdmin reports whether the user has the admin flag, holds the admin role,
// or is granted the admin_access permission.
func (s *AuthzService) IsAdmin(ctx context.Context, user *model.User) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsAdmin {
		return true, nil
	}

	roles, err := s.userRepo.ListRoles(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == model.AdminRoleName {
			return true, nil
		}
	}
	if user.RoleID != nil {
		primary, err := s.roleRepo.GetByID(ctx, *user.RoleID)
		if err != nil {
			return false, err
		}
		if primary != nil && primary.Name == model.AdminRoleName {
			return true, nil
		}
	}

	perms, err := s.userRepo.ListPermissions(ctx, user.ID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Name == model.AdminPermissionName {
			return true, nil
		}
	}
	return false, nil
}

type SeedInput struct {
	AdminMobile   string
	AdminPassword string
	AdminEmail    string
}

// Seed makes sure the built-in roles and permissions exist, that the admin
// role holds every built-in permission, and optionally that an admin user exists.
func (s *AuthzService) Seed(ctx context.Context, input SeedInput) error {
	adminRole, err := ensureRole(ctx, s.roleRepo, model.AdminRoleName, "Administrator with full access")
	if err != nil {
		return err
	}
	if _, err := ensureRole(ctx, s.roleRepo, model.UserRoleName, "Default role for registered users"); err != nil {
		return err
	}

	granted, err := s.roleRepo.ListPermissions(ctx, adminRole.ID)
	if err != nil {
		return err
	}
	has := make(map[string]bool, len(granted))
	for _, p := range granted {
		has[p.Name] = true
	}

	for _, def := range defaultPermissions {
		perm, err := s.permRepo.GetByName(ctx, def.name)
		if err != nil {
			return err
		}
		if perm == nil {
			perm = &model.Permission{Name: def.name, Description: def.description, Resource: def.resource, Action: def.action}
			if err := s.permRepo.Create(ctx, perm); err != nil {
				return err
			}
			ctxzap.Info(ctx, "seeded permission", zap.String("permission", def.name))
		}
		if !has[perm.Name] {
			if err := s.roleRepo.AddPermission(ctx, adminRole.ID, perm); err != nil {
				return err
			}
		}
	}

	mobile := strings.TrimSpace(input.AdminMobile)
	if mobile == "" || input.AdminPassword == "" {
		return nil
	}
	user, err := s.userRepo.GetByMobile(ctx, mobile)
	if err != nil {
		return err
	}
	if user != nil {
		if !user.IsAdmin {
			user.IsAdmin = true
			if err := s.userRepo.Update(ctx, user); err != nil {
				return err
			}
		}
		return nil
	}

	hash, err := hashPassword(input.AdminPassword)
	if err != nil {
		return err
	}
	user = &model.User{
		MobileNumber: mobile,
		Email:        optionalString(input.AdminEmail),
		PasswordHash: hash,
		RoleID:       &adminRole.ID,
		IsActive:     true,
		IsAdmin:      true,
		Roles:        []model.Role{*adminRole},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}
	ctxzap.Info(ctx, "seeded admin user", zap.Uint("user_id", user.ID))
	return nil
}
