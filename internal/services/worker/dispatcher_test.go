package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
)

type fakeSender struct {
	calls int
	last  *notification.Notification
}

func (f *fakeSender) Send(_ context.Context, n *notification.Notification) (notification.SendResult, error) {
	f.calls++
	f.last = n
	return notification.SendResult{ProviderMessageID: "id-123"}, nil
}

func TestDispatcher_RoutesByChannel(t *testing.T) {
	emailSender := &fakeSender{}
	smsSender := &fakeSender{}
	d := NewDispatcher(zap.NewNop())
	d.Register(notification.ChannelEmail, emailSender)
	d.Register(notification.ChannelSMS, smsSender)

	res, err := d.Send(context.Background(), &notification.Notification{ID: "n1", Channel: notification.ChannelSMS})
	require.NoError(t, err)
	assert.Equal(t, "id-123", res.ProviderMessageID)
	assert.Equal(t, 1, smsSender.calls)
	assert.Equal(t, 0, emailSender.calls)
}

func TestDispatcher_UnknownChannel(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	_, err := d.Send(context.Background(), &notification.Notification{ID: "n1", Channel: notification.ChannelPush})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sender registered")
}
