package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
)

// Dispatcher fans a notification out to the sender registered for its
// channel. Senders are collaborators; their timeout and vendor policy
// is their own.
type Dispatcher struct {
	log     *zap.Logger
	senders map[notification.Channel]notification.Sender
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.L()
	}
	return &Dispatcher{
		log:     log.With(zap.String("component", "dispatcher")),
		senders: make(map[notification.Channel]notification.Sender),
	}
}

func (d *Dispatcher) Register(ch notification.Channel, s notification.Sender) {
	d.senders[ch] = s
	d.log.Info("sender registered", zap.String("channel", string(ch)))
}

func (d *Dispatcher) Send(ctx context.Context, n *notification.Notification) (notification.SendResult, error) {
	s, ok := d.senders[n.Channel]
	if !ok {
		return notification.SendResult{}, fmt.Errorf("no sender registered for channel %s", n.Channel)
	}
	return s.Send(ctx, n)
}
