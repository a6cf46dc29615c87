package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueActivity is the asynq queue carrying activity entries.
	QueueActivity = "activity"
	// TaskRecord is the task type for one activity entry.
	TaskRecord = "activity:record"
)

// NewRecordTask wraps entry in an asynq task.
func NewRecordTask(entry Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecord, data, asynq.Queue(QueueActivity), asynq.MaxRetry(3)), nil
}

// QueueSink forwards entries to the worker through asynq.
type QueueSink struct {
	client *asynq.Client
}

// NewQueueSink constructs a QueueSink.
func NewQueueSink(client *asynq.Client) *QueueSink {
	return &QueueSink{client: client}
}

// Append enqueues the entry.
func (s *QueueSink) Append(ctx context.Context, entry Entry) error {
	if s == nil || s.client == nil {
		return errors.New("activity: queue not configured")
	}
	task, err := NewRecordTask(entry)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("activity: enqueue: %w", err)
	}
	return nil
}

// TaskHandler stores queued entries in a Sink.
type TaskHandler struct {
	Sink   Sink
	Logger *slog.Logger
}

// Handle processes TaskRecord tasks.
func (h *TaskHandler) Handle(ctx context.Context, t *asynq.Task) error {
	if h == nil || h.Sink == nil {
		return errors.New("activity: handler not configured")
	}
	var entry Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		return asynq.SkipRetry
	}
	if entry.Username == "" {
		if h.Logger != nil {
			h.Logger.Warn("activity task without username", slog.String("action", entry.Action))
		}
		return asynq.SkipRetry
	}
	return h.Sink.Append(ctx, entry)
}
