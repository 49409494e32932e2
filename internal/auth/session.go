package auth

import (
	"context"
	"sync"

	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// Session binds at most one principal to a single interaction. A request,
// a CLI run or a test each own their Session; nothing is shared between them.
type Session struct {
	mu        sync.RWMutex
	store     *shared.Session
	principal *rbac.Principal
}

// NewSession starts an unbound session. store is the persisted cookie session
// and may be nil for interactions that have none.
func NewSession(store *shared.Session) *Session {
	return &Session{store: store}
}

// CurrentPrincipal returns the bound principal, nil when no one is logged in.
func (s *Session) CurrentPrincipal() *rbac.Principal {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return nil
	}
	p := *s.principal
	return &p
}

// Terminate clears the bound principal and invalidates the persisted session.
// Terminating an empty session is a no-op.
func (s *Session) Terminate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = nil
	s.store.Invalidate()
}

// ID returns the persisted session identifier, empty without a store.
func (s *Session) ID() string {
	if s == nil || s.store == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.ID
}

func (s *Session) bind(p rbac.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = &p
	if s.store != nil {
		s.store.SetUser(p.ID)
	}
}

// restore binds p without touching the persisted session.
func (s *Session) restore(p rbac.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = &p
}

func (s *Session) storedIdentifier() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.User()
}

type sessionContextKey struct{}

// ContextWithSession stores the interaction session in ctx and registers it
// as the principal source for authorization checks.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey{}, sess)
	return rbac.ContextWithSource(ctx, sess)
}

// SessionFromContext returns the interaction session, nil when absent.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
