package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Manager issues session cookies and hands out redis-backed stores keyed by them.
type Manager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// RedisStore is the Store of one browser session, kept in a redis hash that
// expires after the session TTL of inactivity.
type RedisStore struct {
	ID     string
	client *redis.Client
	ttl    time.Duration
}

// NewManager constructs a Manager.
func NewManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *Manager {
	return &Manager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Load returns the store named by the request cookie, or a new one when the
// request carries none. isNew reports whether a cookie must be issued.
func (m *Manager) Load(r *http.Request) (store *RedisStore, isNew bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err == nil {
		if id := strings.TrimSpace(cookie.Value); id != "" {
			if _, perr := uuid.Parse(id); perr == nil {
				return m.store(id), false
			}
		}
	}
	return m.store(uuid.NewString()), true
}

// Middleware places the request's session store in context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, isNew := m.Load(r)
		if isNew {
			http.SetCookie(w, m.cookie(store.ID, m.ttl))
		}
		next.ServeHTTP(w, r.WithContext(ContextWithStore(r.Context(), store)))
	})
}

// Destroy expires the cookie and deletes the stored session when store is
// redis-backed.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, store Store) error {
	http.SetCookie(w, m.cookie("", -1))
	rs, ok := store.(*RedisStore)
	if !ok || rs == nil {
		return nil
	}
	if err := m.client.Del(ctx, rs.key()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

// CookieName returns the cookie identifier used for sessions.
func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) store(id string) *RedisStore {
	return &RedisStore{ID: id, client: m.client, ttl: m.ttl}
}

func (m *Manager) cookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.Expires = time.Now().Add(ttl)
	}
	return c
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key and extends the session lifetime.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key(), key).Err(); err != nil {
		return fmt.Errorf("session: remove %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) key() string {
	return "session:" + s.ID
}
