package handler

import (
	"github.com/gin-gonic/gin"

	"agentic-rag/internal/app"
	"agentic-rag/internal/transport/http/response"
)

type AdminHandler struct {
	admin *app.AdminService
}

type UpdateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

type RoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type PermissionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Resource    *string `json:"resource"`
	Action      *string `json:"action"`
}

type AssignRolesRequest struct {
	RoleIDs []uint `json:"role_ids"`
}

type AssignPermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids"`
}

func NewAdminHandler(admin *app.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), queryInt(c, "skip", 0), queryInt(c, "limit", 0), c.Query("search"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, users)
}

func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	user, err := h.admin.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, user)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.admin.UpdateUser(c.Request.Context(), id, app.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(c.Request.Context(), actor.ID, id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("user deleted"))
}

func (h *AdminHandler) AssignUserRoles(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req AssignRolesRequest
	if !bindJSON(c, &req) {
		return
	}
	roles, err := h.admin.AssignUserRoles(c.Request.Context(), id, req.RoleIDs)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, roles)
}

func (h *AdminHandler) ListUserRoles(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.admin.ListUserRoles(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, roles)
}

func (h *AdminHandler) ListUserPermissions(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	perms, err := h.admin.ListUserPermissions(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perms)
}

func (h *AdminHandler) ListUserConnections(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	conns, err := h.admin.ListUserConnections(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, conns)
}

func (h *AdminHandler) ListRoles(c *gin.Context) {
	roles, err := h.admin.ListRoles(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, roles)
}

func (h *AdminHandler) CreateRole(c *gin.Context) {
	var req RoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.admin.CreateRole(c.Request.Context(), app.RoleInput{Name: req.Name, Description: req.Description})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, role)
}

func (h *AdminHandler) GetRole(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	role, err := h.admin.GetRole(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, role)
}

func (h *AdminHandler) UpdateRole(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.admin.UpdateRole(c.Request.Context(), id, app.RoleInput{Name: req.Name, Description: req.Description})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, role)
}

func (h *AdminHandler) DeleteRole(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteRole(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("role deleted"))
}

func (h *AdminHandler) AssignRolePermissions(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req AssignPermissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	perms, err := h.admin.AssignRolePermissions(c.Request.Context(), id, req.PermissionIDs)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perms)
}

func (h *AdminHandler) ListRolePermissions(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	perms, err := h.admin.ListRolePermissions(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perms)
}

func (h *AdminHandler) ListPermissions(c *gin.Context) {
	perms, err := h.admin.ListPermissions(c.Request.Context(), c.Query("resource"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perms)
}

func (h *AdminHandler) CreatePermission(c *gin.Context) {
	var req PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	perm, err := h.admin.CreatePermission(c.Request.Context(), permissionInput(req))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perm)
}

func (h *AdminHandler) GetPermission(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	perm, err := h.admin.GetPermission(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perm)
}

func (h *AdminHandler) UpdatePermission(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var req PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	perm, err := h.admin.UpdatePermission(c.Request.Context(), id, permissionInput(req))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, perm)
}

func (h *AdminHandler) DeletePermission(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeletePermission(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("permission deleted"))
}

func (h *AdminHandler) ListConnections(c *gin.Context) {
	conns, err := h.admin.ListAllConnections(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, conns)
}

func (h *AdminHandler) DeleteConnection(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteConnection(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, deleted("database connection deleted"))
}

func (h *AdminHandler) DashboardStats(c *gin.Context) {
	stats, err := h.admin.DashboardStats(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, stats)
}

func permissionInput(req PermissionRequest) app.PermissionInput {
	return app.PermissionInput{
		Name:        req.Name,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
	}
}
