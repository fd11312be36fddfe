package postgres

import (
	"context"
	"fmt"
	"time"
)

// InboxMessage is one row in a user's in-app inbox. Written by the
// in-app sender, read by the product surface (out of scope here).
type InboxMessage struct {
	ID             string
	UserID         string
	TenantID       string
	NotificationID string
	Title          string
	Body           string
	Link           string
	CreatedAt      time.Time
}

type InboxRepo struct{ db *DB }

func NewInboxRepo(db *DB) *InboxRepo { return &InboxRepo{db: db} }

const qInboxInsert = `
INSERT INTO inbox_messages (id, user_id, tenant_id, notification_id, title, body, link, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (id) DO NOTHING;
`

func (r *InboxRepo) Insert(ctx context.Context, m *InboxMessage) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, qInboxInsert,
		m.ID,
		m.UserID,
		nullStr(m.TenantID),
		m.NotificationID,
		m.Title,
		m.Body,
		nullStr(m.Link),
	)
	if err != nil {
		return fmt.Errorf("insert inbox message: %w", err)
	}
	return nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
