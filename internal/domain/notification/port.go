package notification

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by store implementations when no row exists for
// the requested id. Callers decide policy; the store never swallows it.
var ErrNotFound = errors.New("notification not found")

// StatusSnapshot is what the worker needs for its idempotency check.
type StatusSnapshot struct {
	Status Status
	SentAt *time.Time
}

// StatusUpdate is a partial status write. Nil fields are left untouched.
type StatusUpdate struct {
	Status         Status
	SentAt         *time.Time
	FailedAt       *time.Time
	ErrorMessage   *string
	IncrementRetry bool
}

// StatusStore is the read/write contract the worker has with persistence.
// The worker is the sole writer for the transitions described here.
type StatusStore interface {
	GetStatus(ctx context.Context, id string) (StatusSnapshot, error)
	UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error
}

type SendResult struct {
	ProviderMessageID string
}

// Sender delivers a notification over one concrete channel. Timeout
// policy belongs to the implementation, not the worker.
type Sender interface {
	Send(ctx context.Context, n *Notification) (SendResult, error)
}
