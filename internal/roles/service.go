package roles

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	CountByRole(ctx context.Context) (map[string]int, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance. repo may be nil, in which case member
// counts are never reported.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns the registry from most to least privileged. Member
// counts are attached when p may manage users.
func (s *Service) ListRoles(ctx context.Context, p *rbac.Principal) ([]Role, error) {
	var counts map[string]int
	if s.repo != nil && rbac.IsAllowed(p, rbac.ActionManageUsers, nil) {
		var err error
		counts, err = s.repo.CountByRole(ctx)
		if err != nil {
			return nil, fmt.Errorf("roles: list: %w", err)
		}
	}
	grants := rbac.Roles()
	out := make([]Role, 0, len(grants))
	for _, grant := range grants {
		name := string(grant.Role)
		role := Role{Name: name, Label: labels[name], Permissions: grant.Permissions.Strings()}
		if counts != nil {
			n := counts[name]
			role.Members = &n
		}
		out = append(out, role)
	}
	return out, nil
}

// Permissions lists every permission name.
func (s *Service) Permissions() []string {
	all := rbac.AllPermissions()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = string(p)
	}
	return out
}
