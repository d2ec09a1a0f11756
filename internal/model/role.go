package model

// Role is the label stored on an admin record. The set of roles is closed;
// see the rbac package for what each one may do.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleViewer     Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// Permission is an action label gating a specific admin operation.
type Permission string

const (
	PermRead           Permission = "read"
	PermWrite          Permission = "write"
	PermDelete         Permission = "delete"
	PermManageUsers    Permission = "manage_users"
	PermManageSettings Permission = "manage_settings"
)
