package auth

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// Middleware opens an interaction session per request, resuming the
// principal recorded in the cookie session. It must run after the cookie
// session has been loaded into the context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := NewSession(shared.SessionFromContext(r.Context()))
		if err := s.Resume(r.Context(), sess); err != nil {
			s.logger.Error("resume session", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
	})
}
