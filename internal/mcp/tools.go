package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("sajuwooju_list_roles",
			mcp.WithDescription(
				"List the admin roles and the permissions each one grants. "+
					"The table is fixed at build time.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListRoles,
	)

	srv.AddTool(
		mcp.NewTool("sajuwooju_list_admins",
			mcp.WithDescription(
				"List admin accounts with their role and active status. "+
					"Password hashes are never included.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("role",
				mcp.Description("Only list admins with this role"),
				mcp.Enum("super_admin", "admin", "viewer"),
			),
			mcp.WithBoolean("active_only",
				mcp.Description("Only list active admins"),
			),
		),
		s.handleListAdmins,
	)

	srv.AddTool(
		mcp.NewTool("sajuwooju_check_permission",
			mcp.WithDescription(
				"Check whether an admin, identified by email, currently holds a "+
					"permission. Uses the live directory record, so deactivated "+
					"accounts and role changes are reflected immediately.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("email",
				mcp.Required(),
				mcp.Description("Admin email address"),
			),
			mcp.WithString("permission",
				mcp.Required(),
				mcp.Description("Permission to check"),
				mcp.Enum("read", "write", "delete", "manage_users", "manage_settings"),
			),
		),
		s.handleCheckPermission,
	)
}

type roleEntry struct {
	Role        model.Role         `json:"role"`
	Permissions []model.Permission `json:"permissions"`
}

func roleTable() []roleEntry {
	roles := rbac.KnownRoles()
	out := make([]roleEntry, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleEntry{Role: r, Permissions: rbac.PermissionsFor(r).List()})
	}
	return out
}

func (s *MCPServer) handleListRoles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successJSON(roleTable())
}

func (s *MCPServer) handleListAdmins(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	role := model.Role(request.GetString("role", ""))
	if role != "" && !role.Valid() {
		return toolError("unknown role %q", role)
	}
	activeOnly := request.GetBool("active_only", false)

	admins, err := s.dir.ListAdmins(ctx)
	if err != nil {
		s.logger.Error("mcp list admins failed", "error", err)
		return toolError("failed to list admins: %v", err)
	}

	out := make([]model.Admin, 0, len(admins))
	for _, a := range admins {
		if role != "" && a.Role != role {
			continue
		}
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return successJSON(map[string]interface{}{
		"admins": out,
		"count":  len(out),
	})
}

type permissionCheck struct {
	Email      string           `json:"email"`
	Permission model.Permission `json:"permission"`
	Allowed    bool             `json:"allowed"`
	Role       model.Role       `json:"role,omitempty"`
	Reason     string           `json:"reason"`
}

func (s *MCPServer) handleCheckPermission(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	email, err := requireString(request, "email")
	if err != nil {
		return toolError("%v", err)
	}
	raw, err := requireString(request, "permission")
	if err != nil {
		return toolError("%v", err)
	}
	perm, ok := rbac.ParsePermission(raw)
	if !ok {
		return toolError("unknown permission %q (known: %s)", raw, permissionNames())
	}

	res := permissionCheck{Email: model.NormalizeEmail(email), Permission: perm}

	admin, err := s.dir.GetAdminByEmail(ctx, res.Email)
	switch {
	case errors.Is(err, config.ErrNotFound):
		res.Reason = "no admin with this email"
		return successJSON(res)
	case err != nil:
		s.logger.Error("mcp permission check failed", "error", err)
		return toolError("directory lookup failed: %v", err)
	}

	res.Role = admin.Role
	_, err = s.gate.Evaluate(ctx, admin.ID, perm)
	switch {
	case err == nil:
		res.Allowed = true
		res.Reason = "granted by role " + string(admin.Role)
	case errors.Is(err, service.ErrAccountUnavailable):
		res.Reason = "account is deactivated"
	case errors.Is(err, service.ErrForbidden):
		res.Reason = "role " + string(admin.Role) + " does not grant " + string(perm)
	default:
		s.logger.Error("mcp permission check failed", "error", err)
		return toolError("directory lookup failed: %v", err)
	}
	return successJSON(res)
}

func permissionNames() string {
	var names []string
	for _, p := range rbac.AllPermissions() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
