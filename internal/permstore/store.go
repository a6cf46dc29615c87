// Package permstore keeps per-user permission documents: a PostgreSQL table,
// a redis read-through cache in front of it, and the Client the access gate
// uses to fetch a document under a deadline.
package permstore

import (
	"context"
	"fmt"

	"github.com/tanktools/tanktools/internal/platform/httpx"
	"github.com/tanktools/tanktools/internal/rbac"
)

// ErrNotFound is returned when no document exists for a username.
var ErrNotFound = fmt.Errorf("permission document %w", httpx.ErrNotFound)

// Store fetches a permission document by lower-cased username.
type Store interface {
	FetchByKey(ctx context.Context, key string) (rbac.FeaturePermissions, error)
}

// Repository is a Store that can also be written.
type Repository interface {
	Store
	Save(ctx context.Context, key string, doc rbac.FeaturePermissions) error
	Delete(ctx context.Context, key string) error
}
