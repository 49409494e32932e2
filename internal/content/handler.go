package content

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

// IdempotencyHeader names the optional request header for creates.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes content endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes registers content routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionViewContent))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionCreateContent))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ActionEditContent))
		r.Put("/{id}", h.update)
	})
}

// MountAdminRoutes registers the statistics endpoint.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ActionViewAllData)).Get("/stats", h.stats)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list content", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"content": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get content", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"content": item})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), in, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, "create content", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "content": item})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		h.fail(w, "update content", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "content": item})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), rbac.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "content stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	expected := errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrForbidden) ||
		errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrDuplicate)
	if !expected {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrNotFound)
		return 0, false
	}
	return id, true
}
