package permstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tanktools/tanktools/internal/rbac"
)

// DefaultFetchTimeout bounds a remote fetch when none is configured.
const DefaultFetchTimeout = 3 * time.Second

// Client fetches documents for the access gate. Concurrent fetches of one
// key share a single lookup; each caller still waits only as long as its own
// context and the fetch timeout allow.
type Client struct {
	store   Store
	timeout time.Duration
	group   singleflight.Group
}

// NewClient wraps store. A non-positive timeout selects DefaultFetchTimeout.
func NewClient(store Store, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{store: store, timeout: timeout}
}

// Fetch returns the user's document, nil when none exists, or an error
// wrapping rbac.ErrRemoteFetch when the lookup failed or timed out.
func (c *Client) Fetch(ctx context.Context, key string) (*rbac.FeaturePermissions, error) {
	if c == nil || c.store == nil || key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, fetchCancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer fetchCancel()
		return c.store.FetchByKey(fetchCtx, key)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", rbac.ErrRemoteFetch, key, ctx.Err())
	case res := <-results:
		if errors.Is(res.Err, ErrNotFound) {
			return nil, nil
		}
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %s: %v", rbac.ErrRemoteFetch, key, res.Err)
		}
		doc := res.Val.(rbac.FeaturePermissions).Clone()
		return &doc, nil
	}
}
