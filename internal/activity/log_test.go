package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) (*RedisLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLog(client), mr
}

func TestRedisLogKeepsNewestEntries(t *testing.T) {
	log, mr := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)
	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, log.Append(ctx, Entry{
			ID:        fmt.Sprintf("e%d", i),
			Username:  "Fahad",
			Action:    ActionPageVisit,
			Details:   "dashboard.html",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := log.Recent(ctx, "fahad", 0)
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, "e5", entries[0].ID)
	assert.Equal(t, fmt.Sprintf("e%d", MaxEntries+4), entries[MaxEntries-1].ID)

	last, err := log.Recent(ctx, "FAHAD", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "e103", last[0].ID)
	assert.True(t, last[1].Timestamp.Equal(base.Add(104*time.Minute)))

	list, err := mr.List(keyPrefix + "fahad")
	require.NoError(t, err)
	assert.Len(t, list, MaxEntries)
}

func TestRedisLogRejectsAnonymousEntries(t *testing.T) {
	log, _ := newTestLog(t)
	assert.Error(t, log.Append(context.Background(), Entry{Action: ActionPageVisit}))

	entries, err := log.Recent(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
