package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Herald/internal/domain/notification"
)

var _ notification.StatusStore = (*StatusRepo)(nil)

// StatusRepo is the worker's view of the notifications table: status
// reads for the idempotency check, status writes for transitions.
type StatusRepo struct{ db *DB }

func NewStatusRepo(db *DB) *StatusRepo { return &StatusRepo{db: db} }

const (
	qStatusGet = `
SELECT status, sent_at
FROM notifications
WHERE id = $1;
`
	qStatusUpdate = `
UPDATE notifications
SET status        = $2,
    sent_at       = COALESCE($3, sent_at),
    failed_at     = COALESCE($4, failed_at),
    error_message = COALESCE($5, error_message),
    retry_count   = LEAST(retry_count + $6, max_retries),
    updated_at    = now()
WHERE id = $1;
`
)

func (r *StatusRepo) GetStatus(ctx context.Context, id string) (notification.StatusSnapshot, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var snap notification.StatusSnapshot
	err := r.db.Pool.QueryRow(ctx, qStatusGet, id).Scan(&snap.Status, &snap.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notification.StatusSnapshot{}, notification.ErrNotFound
		}
		return notification.StatusSnapshot{}, fmt.Errorf("get status: %w", err)
	}
	return snap, nil
}

func (r *StatusRepo) UpdateStatus(ctx context.Context, id string, upd notification.StatusUpdate) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	inc := 0
	if upd.IncrementRetry {
		inc = 1
	}
	tag, err := r.db.Pool.Exec(ctx, qStatusUpdate,
		id,
		upd.Status,
		upd.SentAt,
		upd.FailedAt,
		upd.ErrorMessage,
		inc,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}
