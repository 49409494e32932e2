package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// LoginObserver receives the outcome of each authentication attempt.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// Login outcomes reported to the observer.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	audit    shared.AuditRecorder
	logger   *slog.Logger
	observer LoginObserver
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithAudit records logins and logouts.
func WithAudit(audit shared.AuditRecorder) Option {
	return func(s *Service) { s.audit = audit }
}

// WithLoginObserver reports authentication outcomes.
func WithLoginObserver(observer LoginObserver) Option {
	return func(s *Service) { s.observer = observer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	decoyOnce sync.Once
	decoyHash []byte
)

// decoy returns a hash compared against when the identifier is unknown, so
// both failure paths pay the same bcrypt cost.
func decoy() []byte {
	decoyOnce.Do(func() {
		decoyHash, _ = bcrypt.GenerateFromPassword([]byte("decoy-credential"), bcrypt.DefaultCost)
	})
	return decoyHash
}

// Reject fails an attempt that never reached a stored hash. It still pays the
// bcrypt cost so the response time matches a wrong credential.
func (s *Service) Reject(credential string) error {
	_ = bcrypt.CompareHashAndPassword(decoy(), []byte(credential))
	s.observe(OutcomeRejected)
	return shared.ErrInvalidCredentials
}

// Authenticate validates the credential for identifier and binds the resulting
// principal to sess. Unknown identifiers, inactive accounts and wrong
// credentials all yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, sess *Session, identifier, credential string) (rbac.Principal, error) {
	if sess == nil {
		return rbac.Principal{}, errors.New("auth: session required")
	}
	email := shared.NormalizeIdentifier(identifier)
	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return rbac.Principal{}, s.Reject(credential)
	case err != nil:
		s.observe(OutcomeUnavailable)
		return rbac.Principal{}, fmt.Errorf("auth: authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil || !user.IsActive {
		s.observe(OutcomeRejected)
		return rbac.Principal{}, shared.ErrInvalidCredentials
	}
	principal, err := s.principalFor(user)
	if err != nil {
		s.observe(OutcomeError)
		return rbac.Principal{}, err
	}
	sess.bind(principal)
	s.observe(OutcomeSuccess)
	s.record(ctx, principal.ID, "auth.login", sess.ID())
	return principal, nil
}

// Resume rebinds the principal named by the persisted session, re-reading the
// credential store so role changes apply on the next interaction. Sessions
// whose principal vanished or was deactivated are terminated.
func (s *Service) Resume(ctx context.Context, sess *Session) error {
	if sess == nil || sess.store == nil {
		return nil
	}
	email := sess.storedIdentifier()
	if email == "" {
		return nil
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			sess.Terminate()
			return nil
		}
		return fmt.Errorf("auth: resume: %w", err)
	}
	if !user.IsActive {
		sess.Terminate()
		return nil
	}
	principal, err := s.principalFor(user)
	if err != nil {
		sess.Terminate()
		return err
	}
	sess.restore(principal)
	return nil
}

// Logout terminates sess and drops its audit row. Logging out twice is fine.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	principal := sess.CurrentPrincipal()
	id := sess.ID()
	sess.Terminate()
	if principal == nil {
		return nil
	}
	s.record(ctx, principal.ID, "auth.logout", id)
	if id == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, id)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, sess *Session, ttl time.Duration, ip, ua string) error {
	principal := sess.CurrentPrincipal()
	if principal == nil || sess.ID() == "" {
		return nil
	}
	return s.repo.CreateSession(ctx, sess.ID(), principal.ID, s.now().Add(ttl), ip, ua)
}

// PurgeExpiredSessions removes session rows past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredSessions(ctx, s.now())
}

func (s *Service) principalFor(user *User) (rbac.Principal, error) {
	role, err := rbac.ParseRole(user.Role)
	if err != nil {
		s.logger.Error("stored role outside registry",
			slog.String("principal", user.Email),
			slog.String("role", user.Role))
		return rbac.Principal{}, fmt.Errorf("auth: resolve principal: %w", err)
	}
	return rbac.NewPrincipal(user.Email, user.Name, role)
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveLogin(outcome)
	}
}

func (s *Service) record(ctx context.Context, actor, action, sessionID string) {
	if s.audit == nil || sessionID == "" {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "session", EntityID: sessionID}); err != nil {
		s.logger.Warn("audit auth event", slog.String("action", action), slog.Any("error", err))
	}
}
