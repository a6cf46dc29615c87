package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tanktools/tanktools/internal/rbac"
)

const keyPrefix = "tanktools_activities:"

// RedisLog keeps the most recent MaxEntries entries per user in a redis list.
type RedisLog struct {
	client *redis.Client
	limit  int64
}

// NewRedisLog constructs a RedisLog bounded to MaxEntries.
func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client, limit: MaxEntries}
}

// Append pushes the entry and trims the list to the newest entries.
func (l *RedisLog) Append(ctx context.Context, entry Entry) error {
	if l == nil || l.client == nil {
		return errors.New("activity: redis log not configured")
	}
	if entry.Username == "" {
		return fmt.Errorf("activity: entry %q has no username", entry.Action)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := l.key(entry.Username)
	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -l.limit, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("activity: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the user's newest entries, oldest first. n <= 0
// returns the whole retained log.
func (l *RedisLog) Recent(ctx context.Context, username string, n int) ([]Entry, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("activity: redis log not configured")
	}
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	raw, err := l.client.LRange(ctx, l.key(username), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("activity: recent: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *RedisLog) key(username string) string {
	return keyPrefix + rbac.FoldKey(username)
}
