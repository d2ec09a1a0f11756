// Package rbac holds the static role to permission table used by the admin
// authorization gate.
package rbac

import (
	"sort"
	"strings"

	"github.com/sajuwooju/sajuwooju/internal/model"
)

// PermissionSet is an immutable set of permission labels. The zero value is
// the empty set and grants nothing.
type PermissionSet struct {
	perms map[model.Permission]struct{}
}

var table = map[model.Role][]model.Permission{
	model.RoleSuperAdmin: {
		model.PermRead,
		model.PermWrite,
		model.PermDelete,
		model.PermManageUsers,
		model.PermManageSettings,
	},
	model.RoleAdmin: {
		model.PermRead,
		model.PermWrite,
	},
	model.RoleViewer: {
		model.PermRead,
	},
}

var allPermissions = []model.Permission{
	model.PermRead,
	model.PermWrite,
	model.PermDelete,
	model.PermManageUsers,
	model.PermManageSettings,
}

// PermissionsFor returns the permissions granted to role. A role missing
// from the table yields the empty set so that a table/token skew degrades
// to no access.
func PermissionsFor(role model.Role) PermissionSet {
	granted, ok := table[role]
	if !ok {
		return PermissionSet{}
	}
	set := PermissionSet{perms: make(map[model.Permission]struct{}, len(granted))}
	for _, p := range granted {
		set.perms[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p model.Permission) bool {
	_, ok := s.perms[p]
	return ok
}

// HasAll reports whether every permission in ps is in the set. An empty
// argument list is satisfied trivially.
func (s PermissionSet) HasAll(ps ...model.Permission) bool {
	for _, p := range ps {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// List returns the permissions in the set, sorted by label.
func (s PermissionSet) List() []model.Permission {
	out := make([]model.Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KnownRoles returns every role present in the table, sorted by name.
func KnownRoles() []model.Role {
	roles := make([]model.Role, 0, len(table))
	for r := range table {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// AllPermissions returns every permission label the gate understands.
func AllPermissions() []model.Permission {
	out := make([]model.Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ParsePermission normalizes raw and reports whether it names a known
// permission.
func ParsePermission(raw string) (model.Permission, bool) {
	p := model.Permission(strings.TrimSpace(strings.ToLower(raw)))
	for _, known := range allPermissions {
		if p == known {
			return p, true
		}
	}
	return "", false
}
