package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
)

type staticSource struct{ p *rbac.Principal }

func (s staticSource) CurrentPrincipal() *rbac.Principal { return s.p }

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(nil, svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/content", h.MountRoutes)
	r.Route("/api/admin", h.MountAdminRoutes)
	return r
}

func do(t *testing.T, router http.Handler, p *rbac.Principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(rbac.ContextWithSource(context.Background(), staticSource{p: p}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandlerListAndGet(t *testing.T) {
	router := newTestRouter(NewService(scenarioRepo(), nil))
	viewer := principal(t, "u2", rbac.RoleViewer)

	rr := do(t, router, viewer, http.MethodGet, "/api/content", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var payload struct {
		Content []Item `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, []string{"P1", "P3"}, titles(payload.Content))

	assert.Equal(t, http.StatusNotFound, do(t, router, viewer, http.MethodGet, "/api/content/2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, viewer, http.MethodGet, "/api/content/abc", "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, viewer, http.MethodGet, "/api/content/3", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, nil, http.MethodGet, "/api/content", "").Code)
}

func TestHandlerCreateAndUpdate(t *testing.T) {
	router := newTestRouter(NewService(scenarioRepo(), nil))
	viewer := principal(t, "u2", rbac.RoleViewer)
	editor := principal(t, "u1", rbac.RoleEditor)
	other := principal(t, "u3", rbac.RoleEditor)

	assert.Equal(t, http.StatusForbidden, do(t, router, viewer, http.MethodPost, "/api/content", `{"title":"x"}`).Code)

	rr := do(t, router, editor, http.MethodPost, "/api/content", `{"title":"New","content":"body","visibility":"public"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Success bool `json:"success"`
		Content Item `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.Equal(t, "u1", created.Content.Author)

	assert.Equal(t, http.StatusBadRequest, do(t, router, editor, http.MethodPost, "/api/content", `{"title":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, editor, http.MethodPost, "/api/content", `{"title":"x","author":"u9"}`).Code)

	assert.Equal(t, http.StatusOK, do(t, router, editor, http.MethodPut, "/api/content/2", `{"visibility":"public"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, other, http.MethodPut, "/api/content/1", `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, other, http.MethodPut, "/api/content/3", `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, viewer, http.MethodPut, "/api/content/3", `{"title":"x"}`).Code)
}

func TestHandlerStats(t *testing.T) {
	router := newTestRouter(NewService(scenarioRepo(), nil, WithUserCounter(fixedUsers(3))))

	assert.Equal(t, http.StatusForbidden, do(t, router, principal(t, "u1", rbac.RoleEditor), http.MethodGet, "/api/admin/stats", "").Code)

	rr := do(t, router, principal(t, "root", rbac.RoleAdmin), http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]int
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, map[string]int{"total_users": 3, "total_content": 3, "public_content": 1, "private_content": 2}, stats)
}
