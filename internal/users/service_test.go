package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-cms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
)

type memoryRepo struct {
	users map[string]User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[string]User{
		"admin@example.com":  {Email: "admin@example.com", Name: "Admin User", Role: "admin", IsActive: true},
		"editor@example.com": {Email: "editor@example.com", Name: "Editor User", Role: "editor", IsActive: true},
	}}
}

func (m *memoryRepo) ListUsers(context.Context) ([]User, error) {
	out := []User{m.users["admin@example.com"], m.users["editor@example.com"]}
	return out, nil
}

func (m *memoryRepo) CountUsers(context.Context) (int, error) { return len(m.users), nil }

func (m *memoryRepo) UpdateUser(_ context.Context, email string, in UpdateInput) (User, error) {
	user, ok := m.users[email]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	m.users[email] = user
	return user, nil
}

type memoryAudit struct{ logs []shared.AuditLog }

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func principal(t *testing.T, id string, role rbac.Role) *rbac.Principal {
	t.Helper()
	p, err := rbac.NewPrincipal(id, id, role)
	require.NoError(t, err)
	return &p
}

func ptr(s string) *string { return &s }

func TestListUsersRequiresManageUsers(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.ListUsers(ctx, nil)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
	_, err = svc.ListUsers(ctx, principal(t, "editor@example.com", rbac.RoleEditor))
	assert.ErrorIs(t, err, shared.ErrForbidden)

	users, err := svc.ListUsers(ctx, principal(t, "admin@example.com", rbac.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateUserRole(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit, nil)
	admin := principal(t, "admin@example.com", rbac.RoleAdmin)
	ctx := context.Background()

	user, err := svc.UpdateUser(ctx, admin, "Editor@Example.com", UpdateInput{Role: ptr(" Viewer ")})
	require.NoError(t, err)
	assert.Equal(t, "viewer", user.Role)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "editor@example.com", audit.logs[0].EntityID)
	assert.Equal(t, "viewer", audit.logs[0].Meta["role"])

	_, err = svc.UpdateUser(ctx, admin, "editor@example.com", UpdateInput{Role: ptr("owner")})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.UpdateUser(ctx, admin, "editor@example.com", UpdateInput{})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.UpdateUser(ctx, admin, "editor@example.com", UpdateInput{Name: ptr("")})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.UpdateUser(ctx, admin, "ghost@example.com", UpdateInput{Name: ptr("Ghost")})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.UpdateUser(ctx, principal(t, "editor@example.com", rbac.RoleEditor), "admin@example.com", UpdateInput{Role: ptr("viewer")})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, "admin", repo.users["admin@example.com"].Role)
}

func TestHandlerRoutes(t *testing.T) {
	h := NewHandler(nil, NewService(newMemoryRepo(), nil, nil), rbac.Middleware{})
	router := chi.NewRouter()
	router.Route("/api/users", h.MountRoutes)

	serve := func(p *rbac.Principal, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(rbac.ContextWithSource(req.Context(), source{p}))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}
	admin := principal(t, "admin@example.com", rbac.RoleAdmin)

	assert.Equal(t, http.StatusOK, serve(admin, http.MethodGet, "/api/users", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(principal(t, "v", rbac.RoleViewer), http.MethodGet, "/api/users", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(nil, http.MethodGet, "/api/users", "").Code)

	rr := serve(admin, http.MethodPatch, "/api/users/editor@example.com", `{"name":"Ed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"Ed"`)
	assert.Equal(t, http.StatusBadRequest, serve(admin, http.MethodPatch, "/api/users/editor@example.com", `{"email":"x@y"}`).Code)
}

type source struct{ p *rbac.Principal }

func (s source) CurrentPrincipal() *rbac.Principal { return s.p }
