package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
	obsretry "github.com/NordCoder/Herald/internal/obs/retry"
)

type published struct {
	key   []byte
	value any
}

type fakePublisher struct {
	published []published
	err       error
}

func (p *fakePublisher) PublishJSON(_ context.Context, key []byte, v any) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, published{key: key, value: v})
	return nil
}

// newTestRouter disables the publish retry policy so failing-publisher
// tests don't sit in backoff sleeps.
func newTestRouter(retryPub, dlqPub publisher, maxRetries int, baseDelay time.Duration) *Router {
	r := NewRouter(zap.NewNop(), retryPub, dlqPub, maxRetries, baseDelay)
	r.policy = obsretry.Policy{Attempts: 1}
	return r
}

func testMessage(id string, retryCount int) *notification.Message {
	return &notification.Message{
		ID:         id,
		UserID:     "u1",
		Channel:    notification.ChannelEmail,
		Type:       notification.TypeTransactional,
		Payload:    json.RawMessage(`{"to":"u1@example.com"}`),
		RetryCount: retryCount,
	}
}

func TestRoute_RepublishesWithIncrementAndGeometricDelay(t *testing.T) {
	retryPub := &fakePublisher{}
	dlqPub := &fakePublisher{}
	r := newTestRouter(retryPub, dlqPub, 3, time.Second)

	for attempt, wantDelay := range map[int]int64{
		0: 1000,
		1: 2000,
		2: 4000,
	} {
		retryPub.published = nil
		err := r.Route(context.Background(), testMessage("n1", attempt), "SMTP timeout")
		require.NoError(t, err)
		require.Len(t, retryPub.published, 1)

		got := retryPub.published[0].value.(*notification.Message)
		assert.Equal(t, attempt+1, got.RetryCount)
		assert.Equal(t, wantDelay, got.DelayMs)
		assert.Equal(t, []byte("n1"), retryPub.published[0].key)
		// unchanged otherwise
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, notification.ChannelEmail, got.Channel)
	}
	assert.Empty(t, dlqPub.published)
}

func TestRoute_DeadLettersOnExhaustion(t *testing.T) {
	retryPub := &fakePublisher{}
	dlqPub := &fakePublisher{}
	r := newTestRouter(retryPub, dlqPub, 3, time.Second)

	err := r.Route(context.Background(), testMessage("n2", 3), "SMTP timeout")
	require.NoError(t, err)

	assert.Empty(t, retryPub.published)
	require.Len(t, dlqPub.published, 1)

	dl := dlqPub.published[0].value.(*notification.DeadLetter)
	assert.Equal(t, "SMTP timeout", dl.ErrorMessage)
	assert.Equal(t, 3, dl.RetryCount)
	assert.True(t, dl.Exhausted)
	assert.Equal(t, "n2", dl.Message.ID)
	assert.False(t, dl.FailedAt.IsZero())
}

func TestRoute_NegativeRetryCountTreatedAsZero(t *testing.T) {
	retryPub := &fakePublisher{}
	r := newTestRouter(retryPub, &fakePublisher{}, 3, time.Second)

	require.NoError(t, r.Route(context.Background(), testMessage("n1", -2), "boom"))
	require.Len(t, retryPub.published, 1)
	got := retryPub.published[0].value.(*notification.Message)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, int64(1000), got.DelayMs)
}

func TestRoute_TransportErrorSurfaced(t *testing.T) {
	transportErr := errors.New("broker unreachable")

	r := newTestRouter(&fakePublisher{err: transportErr}, &fakePublisher{}, 3, time.Second)
	err := r.Route(context.Background(), testMessage("n1", 0), "boom")
	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)
	assert.Contains(t, err.Error(), "publish retry")

	r = newTestRouter(&fakePublisher{}, &fakePublisher{err: transportErr}, 3, time.Second)
	err = r.Route(context.Background(), testMessage("n1", 3), "boom")
	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)
	assert.Contains(t, err.Error(), "publish dead letter")
}

func TestNewRouter_Defaults(t *testing.T) {
	r := NewRouter(nil, &fakePublisher{}, &fakePublisher{}, 0, 0)
	assert.Equal(t, DefaultMaxRetries, r.maxRetries)
	assert.Equal(t, DefaultBaseDelay, r.baseDelay)
}
