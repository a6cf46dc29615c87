package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	written chan struct{}
}

func newMemorySink() *memorySink {
	return &memorySink{written: make(chan struct{}, 16)}
}

func (s *memorySink) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	err := s.err
	s.mu.Unlock()
	s.written <- struct{}{}
	return err
}

func (s *memorySink) snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := newMemorySink()
	d := NewDispatcher(sink, 1, quietLogger())
	drops := 0
	d.OnDrop = func() { drops++ }

	d.Record(context.Background(), Entry{Username: "a", Action: ActionPageVisit})
	d.Record(context.Background(), Entry{Username: "a", Action: ActionPageVisit})
	d.Record(context.Background(), Entry{Username: "a", Action: ActionPageVisit})

	assert.Equal(t, uint64(2), d.Dropped())
	assert.Equal(t, 2, drops)
	assert.Empty(t, sink.snapshot())
}

func TestDispatcherStampsAndDrains(t *testing.T) {
	sink := newMemorySink()
	d := NewDispatcher(sink, 4, quietLogger())
	fixed := time.Date(2024, 6, 4, 9, 30, 0, 0, time.UTC)
	d.clock = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Record(ctx, Entry{Username: "u", Action: ActionAccessDenied, Details: "time_restriction"})
	select {
	case <-sink.written:
	case <-time.After(2 * time.Second):
		t.Fatal("entry was not drained")
	}
	cancel()
	<-done

	entries := sink.snapshot()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, fixed, entries[0].Timestamp)
	assert.Equal(t, "time_restriction", entries[0].Details)
}

func TestDispatcherFlushesOnShutdownAndSurvivesSinkErrors(t *testing.T) {
	sink := newMemorySink()
	sink.err = errors.New("redis down")
	d := NewDispatcher(sink, 4, quietLogger())

	d.Record(context.Background(), Entry{Username: "u", Action: ActionPageVisit})
	d.Record(context.Background(), Entry{Username: "u", Action: ActionLogout})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.Len(t, sink.snapshot(), 2)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Record(context.Background(), Entry{Username: "u"})
	assert.Zero(t, d.Dropped())
}
