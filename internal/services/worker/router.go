package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
	obsretry "github.com/NordCoder/Herald/internal/obs/retry"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

type publisher interface {
	PublishJSON(ctx context.Context, key []byte, v any) error
}

// Router decides retry vs. dead-letter for a failed message and
// republishes it. Retried messages land at the tail of the retry topic;
// ordering relative to fresh messages is explicitly not preserved.
type Router struct {
	log        *zap.Logger
	retryPub   publisher
	dlqPub     publisher
	maxRetries int
	baseDelay  time.Duration
	policy     obsretry.Policy
	now        func() time.Time
}

func NewRouter(log *zap.Logger, retryPub, dlqPub publisher, maxRetries int, baseDelay time.Duration) *Router {
	if log == nil {
		log = zap.L()
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Router{
		log:        log.With(zap.String("component", "retry-router")),
		retryPub:   retryPub,
		dlqPub:     dlqPub,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		policy:     obsretry.DefaultPublishPolicy(log),
		now:        time.Now,
	}
}

// Route republishes msg to the retry topic with an incremented attempt
// counter and a geometric delay hint, or to the dead-letter topic once
// the budget is exhausted. A transport error is returned to the caller,
// never swallowed.
func (r *Router) Route(ctx context.Context, msg *notification.Message, errMsg string) error {
	attempt := msg.RetryCount
	if attempt < 0 {
		attempt = 0
	}

	if attempt < r.maxRetries {
		next := *msg
		next.RetryCount = attempt + 1
		next.DelayMs = (r.baseDelay << attempt).Milliseconds()

		err := obsretry.Do(ctx, func() error {
			return r.retryPub.PublishJSON(ctx, []byte(msg.ID), &next)
		}, r.policy)
		if err != nil {
			return fmt.Errorf("publish retry: %w", err)
		}
		mRetried.Inc()
		r.log.Info("message scheduled for retry",
			zap.String("id", msg.ID),
			zap.Int("attempt", next.RetryCount),
			zap.Int64("delay_ms", next.DelayMs),
			zap.String("error", errMsg),
		)
		return nil
	}

	dl := notification.DeadLetter{
		Message:      *msg,
		ErrorMessage: errMsg,
		Exhausted:    true,
		RetryCount:   attempt,
		FailedAt:     r.now().UTC(),
	}
	err := obsretry.Do(ctx, func() error {
		return r.dlqPub.PublishJSON(ctx, []byte(msg.ID), &dl)
	}, r.policy)
	if err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	mDeadLettered.Inc()
	r.log.Warn("message dead-lettered",
		zap.String("id", msg.ID),
		zap.Int("retry_count", attempt),
		zap.String("error", errMsg),
	)
	return nil
}
