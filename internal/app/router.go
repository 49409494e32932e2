package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/odyssey-erp/odyssey-cms/internal/audit/http"
	"github.com/odyssey-erp/odyssey-cms/internal/auth"
	"github.com/odyssey-erp/odyssey-cms/internal/content"
	"github.com/odyssey-erp/odyssey-cms/internal/observability"
	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/roles"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
	"github.com/odyssey-erp/odyssey-cms/internal/users"
	"github.com/odyssey-erp/odyssey-cms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthService    *auth.Service
	AuthHandler    *auth.Handler
	ContentHandler *content.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	AuditHandler   *audithttp.Handler
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with CMS defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	mwCfg := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}

	r := chi.NewRouter()
	for _, mw := range SecurityStack(mwCfg) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, httpx.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		for _, mw := range SessionStack(mwCfg) {
			r.Use(mw)
		}
		r.Use(params.AuthService.Middleware)

		params.AuthHandler.MountRoutes(r)
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.ContentHandler != nil {
			r.Route("/content", params.ContentHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		r.Route("/admin", func(r chi.Router) {
			if params.ContentHandler != nil {
				params.ContentHandler.MountAdminRoutes(r)
			}
			params.AuditHandler.MountRoutes(r)
			if params.JobHandler != nil {
				r.Group(func(r chi.Router) {
					r.Use(params.RBACMiddleware.Require(rbac.ActionViewAllData))
					r.Route("/jobs", params.JobHandler.MountRoutes)
				})
			}
		})
	})

	return r
}
