package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds the persisted state of one browser session. It records only
// the bound principal identifier; permissions are never persisted here.
type Session struct {
	ID      string
	values  map[string]string
	userID  string
	retired string
	isNew   bool
	dirty   bool
	dead    bool
}

type sessionPayload struct {
	Values map[string]string `json:"values"`
	UserID string            `json:"user_id"`
}

// NewSessionManager constructs a SessionManager. Cookie values are signed
// with secret; a cookie whose signature does not verify is ignored.
func NewSessionManager(client *redis.Client, secret, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load loads the session named by the request cookie or starts a new one.
// An unknown or expired cookie yields a fresh session with no user bound.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(), nil
		}
		return nil, err
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return newSession(), nil
		}
		return nil, Unavailable("session: load", err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return newSession(), nil
	}

	sess := newSession()
	sess.ID = id
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.userID = stored.UserID
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.retired != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.retired)).Err(); err != nil {
			return Unavailable("session: retire", err)
		}
		sess.retired = ""
	}

	if sess.dead {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil {
			return Unavailable("session: delete", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if !sess.dirty && !sess.isNew {
		return nil
	}

	data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID})
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return Unavailable("session: save", err)
	}
	sess.dirty = false
	sess.isNew = false

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a principal identifier and moves the
// session to a new ID so a pre-login cookie cannot be reused after login.
func (s *Session) SetUser(id string) {
	if !s.isNew && s.retired == "" {
		s.retired = s.ID
	}
	s.ID = newSessionID()
	s.userID = id
	s.dead = false
	s.dirty = true
}

// User returns the bound principal identifier, empty when none.
func (s *Session) User() string {
	if s == nil || s.dead {
		return ""
	}
	return s.userID
}

// Invalidate clears the binding and marks the session for deletion.
// Calling it again is a no-op.
func (s *Session) Invalidate() {
	if s == nil || s.dead {
		return
	}
	s.userID = ""
	s.values = make(map[string]string)
	s.dead = true
}

// Invalidated reports whether Invalidate was called.
func (s *Session) Invalidated() bool {
	return s != nil && s.dead
}

func newSession() *Session {
	return &Session{
		ID:     newSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(sm.mac(id))
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(raw, sm.mac(id)) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) mac(id string) []byte {
	h := hmac.New(sha256.New, sm.secret)
	_, _ = h.Write([]byte(id))
	return h.Sum(nil)
}

func (sm *SessionManager) redisKey(id string) string {
	return "cms:session:" + id
}

func newSessionID() string {
	return uuid.NewString()
}
