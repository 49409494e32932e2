package rbac

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
)

// DecisionObserver receives the outcome of every middleware decision.
type DecisionObserver interface {
	ObserveDecision(gate string, allowed bool)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Logger   *slog.Logger
	Observer DecisionObserver
}

// RequireAuthenticated rejects requests without a bound principal.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.gate("authenticated", func(*Principal) bool { return true })
}

// Require ensures the current principal holds the permission gating action.
// Item-scoped checks are left to the handler, which knows the target.
func (m Middleware) Require(action Action) func(http.Handler) http.Handler {
	return m.gate(string(action), func(p *Principal) bool {
		return IsAllowed(p, action, nil)
	})
}

func (m Middleware) gate(name string, allow func(*Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				m.observe(name, false)
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allow(p) {
				m.observe(name, false)
				if m.Logger != nil {
					m.Logger.Info("rbac denied",
						slog.String("gate", name),
						slog.String("principal", p.ID),
						slog.String("role", string(p.Role)),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			m.observe(name, true)
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(gate string, allowed bool) {
	if m.Observer != nil {
		m.Observer.ObserveDecision(gate, allowed)
	}
}
