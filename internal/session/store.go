// Package session holds the signed-in user between page loads.
package session

import (
	"context"
	"errors"
	"sync"
)

// Keys used in the session store.
const (
	KeyActive     = "tanktools_session_active"
	KeyUser       = "tanktools_user"
	KeyActivities = "tanktools_activities"
)

// ErrNoSession is returned when the store holds no active signed-in user.
var ErrNoSession = errors.New("session: no active session")

// Store is a string key/value store scoped to one browser session.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Remove deletes key. Missing keys are ignored.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

type storeContextKey struct{}

// ContextWithStore stores the request's session store in context.
func ContextWithStore(ctx context.Context, store Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, store)
}

// StoreFromContext extracts the session store from context.
func StoreFromContext(ctx context.Context) Store {
	store, _ := ctx.Value(storeContextKey{}).(Store)
	return store
}
