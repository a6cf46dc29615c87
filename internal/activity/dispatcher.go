package activity

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultBuffer is used when NewDispatcher receives a non-positive size.
const DefaultBuffer = 256

// Dispatcher queues entries in a bounded buffer and drains them into a Sink
// from a single goroutine. Record never blocks; entries arriving while the
// buffer is full are dropped and counted.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	entries chan Entry
	dropped atomic.Uint64
	clock   func() time.Time

	// OnDrop, when set, is called for every dropped entry.
	OnDrop func()
}

// NewDispatcher constructs a Dispatcher. Call Run to start draining.
func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:    sink,
		logger:  logger,
		entries: make(chan Entry, buffer),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Record enqueues entry, stamping an id and timestamp when missing.
func (d *Dispatcher) Record(_ context.Context, entry Entry) {
	if d == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = d.clock()
	}
	select {
	case d.entries <- entry:
	default:
		d.dropped.Add(1)
		if d.OnDrop != nil {
			d.OnDrop()
		}
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Run drains entries until ctx is cancelled, then flushes what is buffered.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case entry := <-d.entries:
			d.write(ctx, entry)
		case <-ctx.Done():
			d.flush()
			return
		}
	}
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case entry := <-d.entries:
			d.write(ctx, entry)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, entry Entry) {
	if err := d.sink.Append(ctx, entry); err != nil {
		d.logger.Warn("activity append failed",
			slog.String("username", entry.Username),
			slog.String("action", entry.Action),
			slog.Any("error", err))
	}
}
