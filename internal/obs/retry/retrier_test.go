package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoJitterGrowthAndCap(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: 500 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 200*time.Millisecond, b.Next(1))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, 500*time.Millisecond, b.Next(3))
	assert.Equal(t, 100*time.Millisecond, b.Next(-1))
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, Policy{Attempts: 5, Backoff: ExpoJitter{Base: time.Millisecond}})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return fatal
	}, Policy{
		Attempts:  5,
		Backoff:   ExpoJitter{Base: time.Millisecond},
		Retryable: func(err error) bool { return !errors.Is(err, fatal) },
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	var exhausted error
	err := Do(context.Background(), func() error { return boom }, Policy{
		Attempts:  3,
		Backoff:   ExpoJitter{Base: time.Millisecond},
		OnExhaust: func(e error) { exhausted = e },
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, exhausted, boom)
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, func() error { return errors.New("keep going") }, Policy{
		Attempts: 10,
		Backoff:  ExpoJitter{Base: time.Second},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
