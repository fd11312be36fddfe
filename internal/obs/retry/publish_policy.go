package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultPublishPolicy is the policy used for broker publishes (retry
// and dead-letter routing). The final error still surfaces to the
// caller; this only absorbs transient broker hiccups.
func DefaultPublishPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "kafka_publish",
		Attempts: 3,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("publish retries exhausted", zap.Error(err))
			}
		},
	}
}
