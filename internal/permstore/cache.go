package permstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tanktools/tanktools/internal/rbac"
)

const cachePrefix = "permissions:"

// CachedStore is a read-through redis cache in front of a Repository. Cache
// failures fall back to the repository; writes invalidate the cached copy.
type CachedStore struct {
	next   Repository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps next. A nil client disables caching.
func NewCachedStore(next Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, client: client, ttl: ttl, logger: logger}
}

// FetchByKey returns the cached document or loads and caches it.
func (c *CachedStore) FetchByKey(ctx context.Context, key string) (rbac.FeaturePermissions, error) {
	if c.client == nil {
		return c.next.FetchByKey(ctx, key)
	}
	payload, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if err == nil {
		var doc rbac.FeaturePermissions
		if jerr := json.Unmarshal(payload, &doc); jerr == nil {
			return doc, nil
		}
		c.logger.Warn("discarding unreadable cached permissions", slog.String("username", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("permission cache read", slog.String("username", key), slog.Any("error", err))
	}

	doc, err := c.next.FetchByKey(ctx, key)
	if err != nil {
		return doc, err
	}
	if raw, merr := json.Marshal(doc); merr == nil {
		if serr := c.client.Set(ctx, cachePrefix+key, raw, c.ttl).Err(); serr != nil {
			c.logger.Warn("permission cache write", slog.String("username", key), slog.Any("error", serr))
		}
	}
	return doc, nil
}

// Save writes through to the repository and drops the cached copy.
func (c *CachedStore) Save(ctx context.Context, key string, doc rbac.FeaturePermissions) error {
	if err := c.next.Save(ctx, key, doc); err != nil {
		return err
	}
	return c.invalidate(ctx, key)
}

// Delete removes the document and the cached copy.
func (c *CachedStore) Delete(ctx context.Context, key string) error {
	if err := c.next.Delete(ctx, key); err != nil {
		return err
	}
	return c.invalidate(ctx, key)
}

func (c *CachedStore) invalidate(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, cachePrefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
