package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

const idempotencyModule = "content.create"

// Cache fronts Repository.List.
type Cache interface {
	Items(ctx context.Context, load func(context.Context) ([]Item, error)) ([]Item, error)
	Bump(ctx context.Context) error
}

// IdempotencyGuard claims request keys so retried creates are not repeated.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// UserCounter reports the number of principals for statistics.
type UserCounter interface {
	CountUsers(ctx context.Context) (int, error)
}

// Service gates every content operation on the authorization engine before
// the store is touched.
type Service struct {
	repo      Repository
	cache     Cache
	audit     shared.AuditRecorder
	guard     IdempotencyGuard
	users     UserCounter
	logger    *slog.Logger
	validator *validator.Validate
}

// Option customises a Service.
type Option func(*Service)

// WithCache serves listings through cache.
func WithCache(cache Cache) Option { return func(s *Service) { s.cache = cache } }

// WithAudit records creates and updates.
func WithAudit(audit shared.AuditRecorder) Option { return func(s *Service) { s.audit = audit } }

// WithIdempotency enables Idempotency-Key handling on create.
func WithIdempotency(guard IdempotencyGuard) Option { return func(s *Service) { s.guard = guard } }

// WithUserCounter enables the user total in Stats.
func WithUserCounter(users UserCounter) Option { return func(s *Service) { s.users = users } }

// NewService builds a Service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, validator: validator.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the items p may see, in store order.
func (s *Service) List(ctx context.Context, p *rbac.Principal) ([]Item, error) {
	if !rbac.IsAllowed(p, rbac.ActionViewContent, nil) {
		return []Item{}, nil
	}
	items, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return rbac.VisibleTo(p, items), nil
}

// Get returns one item. Items p may not see are reported as not found so
// their existence is not confirmed.
func (s *Service) Get(ctx context.Context, p *rbac.Principal, id int64) (Item, error) {
	if p == nil {
		return Item{}, shared.ErrNotFound
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("content: get %d: %w", id, err)
	}
	res := item.Resource()
	if !rbac.IsAllowed(p, rbac.ActionViewContent, &res) {
		return Item{}, fmt.Errorf("content: get %d: %w", id, shared.ErrNotFound)
	}
	return item, nil
}

// Create stores a new item authored by p. Visibility defaults to private.
// A non-empty idempotencyKey makes a repeated request fail with ErrDuplicate.
func (s *Service) Create(ctx context.Context, p *rbac.Principal, in CreateInput, idempotencyKey string) (Item, error) {
	if err := deny(p, rbac.ActionCreateContent, nil); err != nil {
		return Item{}, err
	}
	if err := s.validator.Struct(in); err != nil {
		return Item{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	key := ""
	if s.guard != nil && idempotencyKey != "" {
		key = p.ID + ":" + idempotencyKey
		if err := s.guard.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Item{}, fmt.Errorf("%w: request already processed", shared.ErrDuplicate)
			}
			return Item{}, fmt.Errorf("content: create: %w", err)
		}
	}

	visibility := VisibilityPrivate
	if in.Visibility != "" {
		visibility = Visibility(in.Visibility)
	}
	item, err := s.repo.Create(ctx, Item{
		Title:      in.Title,
		Body:       in.Body,
		Author:     p.ID,
		Visibility: visibility,
	})
	if err != nil {
		if key != "" {
			if relErr := s.guard.Delete(ctx, key, idempotencyModule); relErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		return Item{}, fmt.Errorf("content: create: %w", err)
	}
	s.invalidate(ctx)
	s.record(ctx, p.ID, "content.create", item.ID, map[string]any{"visibility": string(item.Visibility)})
	return item, nil
}

// Update applies a partial update. Invisible items are not found; visible
// items p may not modify are forbidden.
func (s *Service) Update(ctx context.Context, p *rbac.Principal, id int64, in UpdateInput) (Item, error) {
	if err := deny(p, rbac.ActionEditContent, nil); err != nil {
		if p != nil {
			// Without edit rights, hidden items must still look absent.
			if _, getErr := s.Get(ctx, p, id); getErr != nil {
				return Item{}, getErr
			}
		}
		return Item{}, err
	}
	current, err := s.Get(ctx, p, id)
	if err != nil {
		return Item{}, err
	}
	res := current.Resource()
	if !rbac.IsAllowed(p, rbac.ActionEditContent, &res) {
		return Item{}, fmt.Errorf("content: update %d: %w", id, shared.ErrForbidden)
	}
	if err := s.validator.Struct(in); err != nil {
		return Item{}, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if in.Empty() {
		return current, nil
	}
	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Item{}, fmt.Errorf("content: update %d: %w", id, err)
	}
	s.invalidate(ctx)
	s.record(ctx, p.ID, "content.update", id, map[string]any{"fields": in.Fields(), "author": current.Author})
	return updated, nil
}

// Stats summarises users and content for principals holding view_all_data.
func (s *Service) Stats(ctx context.Context, p *rbac.Principal) (Stats, error) {
	if err := deny(p, rbac.ActionViewAllData, nil); err != nil {
		return Stats{}, err
	}
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("content: stats: %w", err)
	}
	stats := Stats{Counts: counts}
	if s.users != nil {
		n, err := s.users.CountUsers(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("content: stats: %w", err)
		}
		stats.TotalUsers = n
	}
	return stats, nil
}

func (s *Service) all(ctx context.Context) ([]Item, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}
	items, err := s.cache.Items(ctx, s.repo.List)
	if err == nil {
		return items, nil
	}
	if errors.Is(err, shared.ErrUnavailable) || ctx.Err() != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	s.logger.Warn("content cache bypassed", slog.Any("error", err))
	return s.repo.List(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Error("content cache bump", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "content",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit content event", slog.String("action", action), slog.Any("error", err))
	}
}

// deny converts a negative decision into the matching error.
func deny(p *rbac.Principal, action rbac.Action, target *rbac.Resource) error {
	if p == nil {
		return httpx.ErrUnauthorized
	}
	if !rbac.IsAllowed(p, action, target) {
		return fmt.Errorf("%s: %w", action, shared.ErrForbidden)
	}
	return nil
}
