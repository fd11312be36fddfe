package inapp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
	pg "github.com/NordCoder/Herald/internal/repository/postgres"
)

// Sender delivers IN_APP notifications by writing an inbox row the
// product surface reads later. Delivery is done once the row is durable.
type Sender struct {
	inbox *pg.InboxRepo
	log   *zap.Logger
}

var _ notification.Sender = (*Sender)(nil)

func New(inbox *pg.InboxRepo) *Sender {
	return &Sender{
		inbox: inbox,
		log:   zap.L().With(zap.String("component", "sender.inapp")),
	}
}

func (s *Sender) WithLogger(l *zap.Logger) *Sender {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "sender.inapp"))
	return &cp
}

func (s *Sender) Send(ctx context.Context, n *notification.Notification) (notification.SendResult, error) {
	p := n.Payload.InApp
	if p == nil {
		return notification.SendResult{}, fmt.Errorf("notification %s has no in-app payload", n.ID)
	}

	row := &pg.InboxMessage{
		ID:             uuid.NewString(),
		UserID:         n.UserID,
		TenantID:       n.TenantID,
		NotificationID: n.ID,
		Title:          p.Title,
		Body:           p.Body,
		Link:           p.Link,
	}
	if err := s.inbox.Insert(ctx, row); err != nil {
		return notification.SendResult{}, err
	}

	s.log.Info("inbox message written",
		zap.String("notification_id", n.ID),
		zap.String("inbox_id", row.ID),
	)
	return notification.SendResult{ProviderMessageID: row.ID}, nil
}
