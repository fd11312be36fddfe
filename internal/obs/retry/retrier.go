package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backoff yields the wait before the next attempt.
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExpoJitter doubles the base each attempt, capped at Max, with a
// symmetric jitter fraction applied last.
type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(b.Base) * math.Pow(2, float64(attempt))
	if b.Max > 0 && time.Duration(d) > b.Max {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	return time.Duration(d)
}

// Policy drives Do. Hooks are optional; a nil Retryable retries any
// non-nil error.
type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
}

var (
	mAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_retry_attempts_total",
		Help: "Attempts made inside retry.Do, including the final one",
	}, []string{"name"})
	mExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "herald_retry_exhausted_total",
		Help: "Operations that failed through every allowed attempt",
	}, []string{"name"})
	mDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "herald_retry_duration_seconds",
		Help:    "Wall time spent inside retry.Do, success or fail",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})
)

// Do runs fn up to p.Attempts times, sleeping p.Backoff between
// failures. The context is honored during the sleep, not inside fn.
func Do(ctx context.Context, fn func() error, p Policy) error {
	name := p.Name
	if name == "" {
		name = "default"
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return err != nil }
	}

	timer := prometheus.NewTimer(mDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	var err error
	for i := 0; i < attempts; i++ {
		mAttempts.WithLabelValues(name).Inc()
		if err = fn(); err == nil {
			return nil
		}
		if p.OnAttempt != nil {
			p.OnAttempt(i, err)
		}
		if !retryable(err) || i == attempts-1 {
			break
		}
		t := time.NewTimer(p.Backoff.Next(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	mExhausted.WithLabelValues(name).Inc()
	if p.OnExhaust != nil {
		p.OnExhaust(err)
	}
	return err
}
