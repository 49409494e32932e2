package rbac

import (
	"errors"
	"fmt"
)

// ErrUnknownRole signals a role outside the registry. Reaching it means a
// stored record is corrupt, so callers log it rather than degrade silently.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Role names a fixed bundle of permissions.
type Role string

// The closed set of roles. Values match the stored and wire representation.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Permission is an atomic capability granted through a role.
type Permission string

const (
	PermViewContent   Permission = "view_content"
	PermCreateContent Permission = "create_content"
	PermEditContent   Permission = "edit_content"
	PermViewAllData   Permission = "view_all_data"
	PermManageUsers   Permission = "manage_users"
)

// allPermissions fixes the bit position and listing order of each permission.
var allPermissions = [...]Permission{
	PermViewContent,
	PermCreateContent,
	PermEditContent,
	PermViewAllData,
	PermManageUsers,
}

// PermissionSet is an immutable bitmask of permissions.
type PermissionSet uint8

func permissionBit(p Permission) (PermissionSet, bool) {
	for i, candidate := range allPermissions {
		if candidate == p {
			return 1 << i, true
		}
	}
	return 0, false
}

// NewPermissionSet builds a set from names; unknown names are ignored.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var set PermissionSet
	for _, p := range perms {
		if bit, ok := permissionBit(p); ok {
			set |= bit
		}
	}
	return set
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	bit, ok := permissionBit(p)
	return ok && s&bit != 0
}

// Contains reports whether every permission of other is also in s.
func (s PermissionSet) Contains(other PermissionSet) bool {
	return s&other == other
}

// List returns the permissions in registry order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(allPermissions))
	for i, p := range allPermissions {
		if s&(1<<i) != 0 {
			out = append(out, p)
		}
	}
	return out
}

// Strings returns the permission names in registry order.
func (s PermissionSet) Strings() []string {
	perms := s.List()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// Principal is an authenticated user. Its permission set is derived from the
// role when the principal is built and cannot be set independently.
type Principal struct {
	ID          string
	DisplayName string
	Role        Role

	permissions PermissionSet
}

// NewPrincipal resolves the permissions for role and binds them to a principal.
func NewPrincipal(id, displayName string, role Role) (Principal, error) {
	perms, err := PermissionsFor(role)
	if err != nil {
		return Principal{}, fmt.Errorf("principal %q: %w", id, err)
	}
	return Principal{ID: id, DisplayName: displayName, Role: role, permissions: perms}, nil
}

// Permissions returns the resolved permission set.
func (p Principal) Permissions() PermissionSet {
	return p.permissions
}

// Has reports whether the principal holds perm.
func (p Principal) Has(perm Permission) bool {
	return p.permissions.Has(perm)
}

// Resource is the ownership and visibility metadata the engine decides on.
type Resource struct {
	Author string
	Public bool
}

// Owned is implemented by anything carrying Resource metadata.
type Owned interface {
	Resource() Resource
}

// AllPermissions lists every permission the registry can grant.
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions[:]...)
}
