package permstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tanktools/tanktools/internal/rbac"
)

type memRepo struct {
	mu      sync.Mutex
	docs    map[string]rbac.FeaturePermissions
	fetches atomic.Int32
	err     error
	block   chan struct{}
	entered chan struct{}
}

func newMemRepo() *memRepo {
	return &memRepo{docs: map[string]rbac.FeaturePermissions{}}
}

func (m *memRepo) FetchByKey(ctx context.Context, key string) (rbac.FeaturePermissions, error) {
	m.fetches.Add(1)
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return rbac.FeaturePermissions{}, ctx.Err()
		}
	}
	if m.err != nil {
		return rbac.FeaturePermissions{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return rbac.FeaturePermissions{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *memRepo) Save(_ context.Context, key string, doc rbac.FeaturePermissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = doc.Clone()
	return nil
}

func (m *memRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; !ok {
		return ErrNotFound
	}
	delete(m.docs, key)
	return nil
}

var errBackend = errors.New("connection refused")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func viewDoc() rbac.FeaturePermissions {
	return rbac.FeaturePermissions{
		Capabilities: map[rbac.Capability]bool{rbac.CanViewLiveTanks: true},
		Tanks:        rbac.TankScope{Departments: []string{"PBCR"}},
	}
}
