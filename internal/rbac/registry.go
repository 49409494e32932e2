package rbac

import (
	"fmt"
	"strings"
)

var registry = map[Role]PermissionSet{
	RoleAdmin: NewPermissionSet(
		PermViewContent,
		PermCreateContent,
		PermEditContent,
		PermViewAllData,
		PermManageUsers,
	),
	RoleEditor: NewPermissionSet(
		PermViewContent,
		PermCreateContent,
		PermEditContent,
	),
	RoleViewer: NewPermissionSet(
		PermViewContent,
	),
}

// privilegeOrder lists roles from most to least privileged.
var privilegeOrder = [...]Role{RoleAdmin, RoleEditor, RoleViewer}

// PermissionsFor returns the permissions granted by role.
func PermissionsFor(role Role) (PermissionSet, error) {
	perms, ok := registry[role]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, string(role))
	}
	return perms, nil
}

// ParseRole validates a stored or submitted role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := registry[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// RoleGrant pairs a role with its permissions.
type RoleGrant struct {
	Role        Role
	Permissions PermissionSet
}

// Roles lists the registry from most to least privileged.
func Roles() []RoleGrant {
	out := make([]RoleGrant, 0, len(privilegeOrder))
	for _, role := range privilegeOrder {
		out = append(out, RoleGrant{Role: role, Permissions: registry[role]})
	}
	return out
}
