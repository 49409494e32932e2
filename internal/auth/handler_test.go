package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-cms/internal/auth"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
	_ "github.com/odyssey-erp/odyssey-cms/testing"
)

type memRepo struct {
	users map[string]*auth.User
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) CreateSession(ctx context.Context, id, email string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (m *memRepo) DeleteSession(ctx context.Context, id string) error { return nil }

func (m *memRepo) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type harness struct {
	router   http.Handler
	sessions *shared.SessionManager
	cookie   *http.Cookie
}

func newHarness(t *testing.T, opts ...auth.Option) *harness {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("viewer123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memRepo{users: map[string]*auth.User{
		"viewer@example.com": {Email: "viewer@example.com", Name: "Viewer User", Role: "viewer", PasswordHash: string(hash), IsActive: true},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "session-secret", "test_session", time.Hour, false)

	svc := auth.NewService(repo, nil, opts...)
	handler := auth.NewHandler(nil, svc, shared.NewCSRFManager("csrfsecret"), time.Hour, 0)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req.WithContext(ctx))
			require.NoError(t, sessions.Commit(ctx, w, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Use(svc.Middleware)
	r.Route("/api", handler.MountRoutes)
	return &harness{router: r, sessions: sessions}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == h.sessions.CookieName() {
			if c.MaxAge < 0 {
				h.cookie = nil
			} else {
				h.cookie = c
			}
		}
	}
	return rr
}

func TestCurrentUserWithoutSession(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/api/user", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Nil(t, body["user"])
	assert.NotEmpty(t, body["csrf_token"])
}

func TestLoginAndLogoutFlow(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodPost, "/api/login", `{"email":"viewer@example.com","password":"viewer123"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Success bool               `json:"success"`
		User    auth.PrincipalView `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&login))
	assert.True(t, login.Success)
	assert.Equal(t, "viewer", login.User.Role)
	assert.Equal(t, []string{"view_content"}, login.User.Permissions)

	rr = h.do(t, http.MethodGet, "/api/user", "")
	var current struct {
		User *auth.PrincipalView `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&current))
	require.NotNil(t, current.User)
	assert.Equal(t, "viewer@example.com", current.User.Email)

	rr = h.do(t, http.MethodPost, "/api/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = h.do(t, http.MethodPost, "/api/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code, "logout is idempotent")

	rr = h.do(t, http.MethodGet, "/api/user", "")
	current.User = nil
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&current))
	assert.Nil(t, current.User)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	h := newHarness(t)

	wrongPassword := h.do(t, http.MethodPost, "/api/login", `{"email":"viewer@example.com","password":"nope"}`)
	unknownUser := h.do(t, http.MethodPost, "/api/login", `{"email":"ghost@example.com","password":"viewer123"}`)
	malformed := h.do(t, http.MethodPost, "/api/login", `{"email":"not-an-email","password":""}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, http.StatusUnauthorized, malformed.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

type loginOutcomes map[string]int

func (o loginOutcomes) ObserveLogin(outcome string) { o[outcome]++ }

func TestMalformedLoginTakesRejectPath(t *testing.T) {
	outcomes := loginOutcomes{}
	h := newHarness(t, auth.WithLoginObserver(outcomes))

	malformed := h.do(t, http.MethodPost, "/api/login", `{"email":"not-an-email","password":"viewer123"}`)
	wrongPassword := h.do(t, http.MethodPost, "/api/login", `{"email":"viewer@example.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, malformed.Code)
	assert.Equal(t, wrongPassword.Body.String(), malformed.Body.String())
	assert.Equal(t, 2, outcomes[auth.OutcomeRejected], "malformed input is rejected like a bad credential")
}
