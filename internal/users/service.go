package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUser(ctx context.Context, email string, in UpdateInput) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	audit     shared.AuditRecorder
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, validator: validator.New()}
}

// ListUsers returns all users when p may manage them.
func (s *Service) ListUsers(ctx context.Context, p *rbac.Principal) ([]User, error) {
	if err := gate(p); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of accounts. Callers gate access.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.CountUsers(ctx)
}

// UpdateUser changes the role or display name of the account identified by
// email. The new role must be one the registry knows. The change is picked
// up on the account's next request.
func (s *Service) UpdateUser(ctx context.Context, p *rbac.Principal, email string, in UpdateInput) (User, error) {
	if err := gate(p); err != nil {
		return User{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if in.Role != nil {
		role, err := rbac.ParseRole(*in.Role)
		if err != nil {
			return User{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
		}
		normalized := string(role)
		in.Role = &normalized
	}
	if in.Empty() {
		return User{}, fmt.Errorf("%w: nothing to update", shared.ErrValidation)
	}
	email = shared.NormalizeIdentifier(email)
	user, err := s.repo.UpdateUser(ctx, email, in)
	if err != nil {
		return User{}, fmt.Errorf("users: update %s: %w", email, err)
	}
	if s.audit != nil {
		meta := map[string]any{}
		if in.Role != nil {
			meta["role"] = *in.Role
		}
		if in.Name != nil {
			meta["name"] = *in.Name
		}
		err := s.audit.Record(ctx, shared.AuditLog{Actor: p.ID, Action: "user.update", Entity: "user", EntityID: email, Meta: meta})
		if err != nil {
			s.logger.Warn("audit user update", slog.Any("error", err))
		}
	}
	return user, nil
}

func gate(p *rbac.Principal) error {
	if p == nil {
		return httpx.ErrUnauthorized
	}
	if !rbac.IsAllowed(p, rbac.ActionManageUsers, nil) {
		return fmt.Errorf("%s: %w", rbac.ActionManageUsers, shared.ErrForbidden)
	}
	return nil
}
