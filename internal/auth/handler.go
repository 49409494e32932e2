package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	csrf       *shared.CSRFManager
	sessionTTL time.Duration
	loginLimit int
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts
// per client IP per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, csrf *shared.CSRFManager, sessionTTL time.Duration, loginLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		csrf:       csrf,
		sessionTTL: sessionTTL,
		loginLimit: loginLimit,
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.LimitByIP(h.loginLimit, time.Minute))
		}
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
	r.Get("/user", h.currentUser)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PrincipalView is the wire form of a principal.
type PrincipalView struct {
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// NewPrincipalView renders p for API responses.
func NewPrincipalView(p rbac.Principal) PrincipalView {
	return PrincipalView{
		Email:       p.ID,
		Name:        p.DisplayName,
		Role:        string(p.Role),
		Permissions: p.Permissions().Strings(),
	}
}

type loginResponse struct {
	Success   bool          `json:"success"`
	User      PrincipalView `json:"user"`
	CSRFToken string        `json:"csrf_token,omitempty"`
}

type currentUserResponse struct {
	User      *PrincipalView `json:"user"`
	CSRFToken string         `json:"csrf_token,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("auth: session middleware not installed"))
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		// Malformed input is reported exactly like a bad credential.
		httpx.RespondError(w, h.service.Reject(req.Password))
		return
	}

	principal, err := h.service.Authenticate(r.Context(), sess, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("remote", r.RemoteAddr))
		} else {
			h.logger.Error("login failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	if err := h.service.RegisterSession(r.Context(), sess, h.sessionTTL, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		Success:   true,
		User:      NewPrincipalView(principal),
		CSRFToken: h.csrfToken(r),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), SessionFromContext(r.Context())); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	resp := currentUserResponse{CSRFToken: h.csrfToken(r)}
	if p := SessionFromContext(r.Context()).CurrentPrincipal(); p != nil {
		view := NewPrincipalView(*p)
		resp.User = &view
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) csrfToken(r *http.Request) string {
	if h.csrf == nil {
		return ""
	}
	token, err := h.csrf.EnsureToken(shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("issue csrf token", slog.Any("error", err))
		return ""
	}
	return token
}
