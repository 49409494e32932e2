package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "session-secret", "test_session", time.Hour, false), mr
}

func requestWithCookie(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), ""))
	require.NoError(t, err)
	assert.Empty(t, sess.User())

	sess.SetUser("editor@example.com")
	sess.Set("k", "v")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))

	loaded, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), sm.sign(sess.ID)))
	require.NoError(t, err)
	assert.Equal(t, "editor@example.com", loaded.User())
	assert.Equal(t, "v", loaded.Get("k"))
}

func TestSetUserRotatesID(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	anon, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), ""))
	require.NoError(t, err)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), anon))
	oldID := anon.ID

	loaded, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), sm.sign(oldID)))
	require.NoError(t, err)
	loaded.SetUser("viewer@example.com")
	require.NotEqual(t, oldID, loaded.ID)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))

	assert.False(t, mr.Exists("cms:session:"+oldID))
	assert.True(t, mr.Exists("cms:session:"+loaded.ID))
}

func TestInvalidateIsIdempotent(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), ""))
	require.NoError(t, err)
	sess.SetUser("admin@example.com")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	sess.Invalidate()
	sess.Invalidate()
	assert.Empty(t, sess.User())
	assert.True(t, sess.Invalidated())

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	assert.False(t, mr.Exists("cms:session:"+sess.ID))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestExpiredSessionLoadsEmpty(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), ""))
	require.NoError(t, err)
	sess.SetUser("editor@example.com")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	mr.FastForward(2 * time.Hour)

	loaded, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), sm.sign(sess.ID)))
	require.NoError(t, err)
	assert.Empty(t, loaded.User())
	assert.NotEqual(t, sess.ID, loaded.ID, "an expired cookie value is never reused")
}

func TestLoadReportsUnavailableStore(t *testing.T) {
	sm, mr := newTestManager(t)
	mr.Close()

	_, err := sm.Load(context.Background(), requestWithCookie(sm.CookieName(), sm.sign("abc")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCommitWritesSignedCookie(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()
	assert.Equal(t, time.Hour, sm.TTL())

	sess, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), ""))
	require.NoError(t, err)
	sess.SetUser("editor@example.com")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, sess.ID, cookies[0].Value)
	assert.Equal(t, sm.sign(sess.ID), cookies[0].Value)
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), ""))
	require.NoError(t, err)
	sess.SetUser("admin@example.com")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	require.True(t, mr.Exists("cms:session:"+sess.ID))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	other := NewSessionManager(client, "other-secret", "test_session", time.Hour, false)

	for _, value := range []string{
		sess.ID,
		sess.ID + ".forged",
		other.sign(sess.ID),
	} {
		loaded, err := sm.Load(ctx, requestWithCookie(sm.CookieName(), value))
		require.NoError(t, err)
		assert.Empty(t, loaded.User(), value)
		assert.NotEqual(t, sess.ID, loaded.ID, value)
	}
}
