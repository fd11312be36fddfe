package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Herald/internal/domain/notification"
	kafkax "github.com/NordCoder/Herald/internal/repository/kafka"
)

const (
	DefaultDrainTimeout  = 30 * time.Second
	drainInitialInterval = 100 * time.Millisecond
	drainMaxInterval     = time.Second
	drainMultiplier      = 1.5
)

type dispatcher interface {
	Send(ctx context.Context, n *notification.Notification) (notification.SendResult, error)
}

type retryRouter interface {
	Route(ctx context.Context, msg *notification.Message, errMsg string) error
}

type DrainConfig struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c DrainConfig) withDefaults() DrainConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultDrainTimeout
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = drainInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = drainMaxInterval
	}
	return c
}

type Config struct {
	// HonorDelay makes the worker respect the delayMs hint attached by
	// the retry router (set on the retry-topic instance).
	HonorDelay bool
	Drain      DrainConfig
}

// Stats is the worker-owned ephemeral state the health reporter reads.
// Lifecycle is tied to the worker's own start/stop, never persisted.
type Stats struct {
	InFlight        bool
	Processed       int64
	Errors          int64
	TotalProcessing time.Duration
	StartedAt       time.Time
}

// Worker drives the receive → validate → idempotency-check → dispatch →
// status-transition loop over one topic. Messages are processed strictly
// sequentially: one completes through status persistence and retry
// routing before the next is pulled.
type Worker struct {
	log    *zap.Logger
	cons   *kafkax.Consumer
	store  notification.StatusStore
	disp   dispatcher
	router retryRouter

	honorDelay bool
	drain      DrainConfig
	topic      string

	startedAt time.Time
	processed atomic.Int64
	errs      atomic.Int64
	procNanos atomic.Int64
	// inFlight is true only while a message is between deserialization
	// and the deferred reset; read concurrently by the health endpoint.
	inFlight atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

func New(
	log *zap.Logger,
	cons *kafkax.Consumer,
	store notification.StatusStore,
	disp dispatcher,
	router retryRouter,
	cfg Config,
) *Worker {
	if log == nil {
		log = zap.L()
	}
	topic := ""
	if cons != nil {
		topic = cons.Topic()
	}
	return &Worker{
		log:        log.With(zap.String("component", "consumer-worker"), zap.String("topic", topic)),
		cons:       cons,
		store:      store,
		disp:       disp,
		router:     router,
		honorDelay: cfg.HonorDelay,
		drain:      cfg.Drain.withDefaults(),
		topic:      topic,
		startedAt:  time.Now(),
	}
}

// Start subscribes the handler to the topic and returns immediately.
func (w *Worker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.startedAt = time.Now()

	go func() {
		defer close(w.done)
		if err := w.cons.Consume(runCtx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error("consume loop exited", zap.Error(err))
		}
	}()
}

// Stop unsubscribes and drains: if a message is in flight it polls with
// a growing interval until the message completes or the drain timeout
// elapses, then shuts down unconditionally.
func (w *Worker) Stop(ctx context.Context) {
	if w.cancel != nil {
		w.cancel()
	}

	if w.awaitDrain(ctx) {
		w.log.Info("drain complete")
	} else {
		w.log.Warn("drain timed out; shutting down with a message in flight",
			zap.Duration("timeout", w.drain.Timeout))
	}

	if w.cons != nil {
		_ = w.cons.Close()
	}
	if w.done != nil {
		select {
		case <-w.done:
		case <-ctx.Done():
		}
	}
}

func (w *Worker) awaitDrain(ctx context.Context) bool {
	if !w.inFlight.Load() {
		return true
	}
	w.log.Info("message in flight; draining", zap.Duration("timeout", w.drain.Timeout))

	deadline := time.Now().Add(w.drain.Timeout)
	interval := w.drain.InitialInterval
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return !w.inFlight.Load()
		case <-time.After(interval):
		}
		if !w.inFlight.Load() {
			return true
		}
		interval = nextDrainInterval(interval, w.drain.MaxInterval)
	}
	return !w.inFlight.Load()
}

func nextDrainInterval(cur, max time.Duration) time.Duration {
	next := time.Duration(float64(cur) * drainMultiplier)
	if next > max {
		next = max
	}
	return next
}

// Handle processes one broker message. Business failures are converted
// into status transitions plus a retry/DLQ publish and are never
// returned to the transport layer: an escaped error would redeliver the
// same offset indefinitely. Only context cancellation propagates.
func (w *Worker) Handle(ctx context.Context, _, value []byte) error {
	w.inFlight.Store(true)
	defer w.inFlight.Store(false)
	mConsumed.WithLabelValues(w.topic).Inc()
	start := time.Now()

	var msg notification.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		w.countError()
		w.log.Error("malformed message dropped", zap.Error(err))
		return nil
	}
	if err := msg.Validate(); err != nil {
		w.countError()
		w.log.Warn("invalid message dropped", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}

	if msg.CorrelationID == "" {
		// backfilled so downstream senders and retry publishes stay traceable
		msg.CorrelationID = uuid.NewString()
	}
	log := w.log.With(
		zap.String("id", msg.ID),
		zap.String("channel", string(msg.Channel)),
		zap.String("correlation_id", msg.CorrelationID),
	)

	if w.honorDelay && msg.DelayMs > 0 {
		if err := w.holdBack(ctx, time.Duration(msg.DelayMs)*time.Millisecond, log); err != nil {
			return err
		}
	}

	// A stop signal cancels the fetch loop and any delay hold, but must
	// not abort a dispatch already past this point; the drain loop in
	// Stop bounds how long completion may take.
	ctx = context.WithoutCancel(ctx)

	snap, err := w.store.GetStatus(ctx, msg.ID)
	if err != nil {
		w.fail(ctx, &msg, fmt.Errorf("get status: %w", err), log)
		return nil
	}
	if snap.Status == notification.StatusSent || snap.SentAt != nil {
		// At-least-once delivery made safe: a terminally sent id is a
		// no-op on redelivery.
		mSkipped.WithLabelValues(w.topic).Inc()
		log.Debug("already sent; skipping dispatch")
		return nil
	}

	if err := w.store.UpdateStatus(ctx, msg.ID, notification.StatusUpdate{Status: notification.StatusProcessing}); err != nil {
		w.fail(ctx, &msg, fmt.Errorf("mark processing: %w", err), log)
		return nil
	}

	res, err := w.disp.Send(ctx, msg.Notification())
	if err != nil {
		w.fail(ctx, &msg, err, log)
		return nil
	}

	now := time.Now().UTC()
	if err := w.store.UpdateStatus(ctx, msg.ID, notification.StatusUpdate{Status: notification.StatusSent, SentAt: &now}); err != nil {
		w.fail(ctx, &msg, fmt.Errorf("mark sent: %w", err), log)
		return nil
	}

	elapsed := time.Since(start)
	w.processed.Add(1)
	w.procNanos.Add(int64(elapsed))
	mSent.WithLabelValues(w.topic).Inc()
	mLatency.WithLabelValues(w.topic).Observe(elapsed.Seconds())
	log.Info("notification sent",
		zap.String("provider_message_id", res.ProviderMessageID),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// holdBack sleeps out the retry delay hint. The partition stays blocked
// meanwhile; acceptable because the retry topic carries failures only.
func (w *Worker) holdBack(ctx context.Context, d time.Duration, log *zap.Logger) error {
	log.Debug("holding back retried message", zap.Duration("delay", d))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *Worker) fail(ctx context.Context, msg *notification.Message, cause error, log *zap.Logger) {
	w.countError()
	errMsg := cause.Error()
	log.Error("processing failed", zap.Error(cause), zap.Int("retry_count", msg.RetryCount))

	if err := w.router.Route(ctx, msg, errMsg); err != nil {
		log.Error("retry routing failed; relying on broker redelivery", zap.Error(err))
	}

	now := time.Now().UTC()
	upd := notification.StatusUpdate{
		Status:         notification.StatusFailed,
		FailedAt:       &now,
		ErrorMessage:   &errMsg,
		IncrementRetry: true,
	}
	if err := w.store.UpdateStatus(ctx, msg.ID, upd); err != nil {
		// Known gap: the row may be left in PROCESSING. Logged, not retried.
		log.Warn("failure status write failed; row may be stuck in PROCESSING", zap.Error(err))
	}
}

func (w *Worker) countError() {
	w.errs.Add(1)
	mErrors.WithLabelValues(w.topic).Inc()
}

func (w *Worker) Stats() Stats {
	return Stats{
		InFlight:        w.inFlight.Load(),
		Processed:       w.processed.Load(),
		Errors:          w.errs.Load(),
		TotalProcessing: time.Duration(w.procNanos.Load()),
		StartedAt:       w.startedAt,
	}
}
