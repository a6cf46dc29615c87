// Package activity records what users do in the dashboard. Recording is
// fire-and-forget: callers hand entries to a Recorder and never wait on storage.
package activity

import (
	"context"
	"time"
)

// MaxEntries bounds the per-user log; older entries are evicted first.
const MaxEntries = 100

// Actions written by the access gate and the tank API.
const (
	ActionPageVisit    = "page_visit"
	ActionAccessDenied = "access_denied"
	ActionLogout       = "logout"
)

// Entry is one logged user action.
type Entry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Page      string    `json:"page,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// Recorder accepts entries without blocking the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Sink persists entries. Implementations may block.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}
