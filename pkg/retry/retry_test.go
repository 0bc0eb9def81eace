package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errFeedback = errors.New("needs feedback")
var errTerminal = errors.New("terminal")

func classify(err error) Class {
	switch {
	case errors.Is(err, errTerminal):
		return ClassTerminal
	case errors.Is(err, errFeedback):
		return ClassRetryableWithFeedback
	default:
		return ClassRetryableTransient
	}
}

func fastConfig() Config {
	return Config{Base: time.Millisecond, Multiplier: 2, Cap: 5 * time.Millisecond, JitterMax: time.Millisecond, MaxAttempts: 4}
}

func TestWithRetry_SucceedsImmediately(t *testing.T) {
	calls := 0
	value, history, err := WithRetry(context.Background(), fastConfig(), classify, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", value)
	require.Equal(t, 1, calls)
	require.Len(t, history, 1)
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	value, history, err := WithRetry(context.Background(), fastConfig(), classify, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	require.NoError(t, err)
	require.Equal(t, 42, value)
	require.Equal(t, 3, calls)
	require.Len(t, history, 3)
	require.Equal(t, ClassRetryableTransient, history[0].Class)
}

func TestWithRetry_TerminalErrorStopsImmediately(t *testing.T) {
	calls := 0
	_, history, err := WithRetry(context.Background(), fastConfig(), classify, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTerminal
	})

	require.ErrorIs(t, err, errTerminal)
	require.Equal(t, 1, calls)
	require.Len(t, history, 1)
	require.Equal(t, ClassTerminal, history[0].Class)
}

func TestWithRetry_ExhaustsMaxAttempts(t *testing.T) {
	calls := 0
	_, history, err := WithRetry(context.Background(), fastConfig(), classify, func(ctx context.Context) (int, error) {
		calls++
		return 0, errFeedback
	})

	require.ErrorIs(t, err, errFeedback)
	require.Equal(t, 4, calls)
	require.Len(t, history, 4)
	require.Equal(t, ClassRetryableWithFeedback, history[3].Class)
}

func TestWithRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := WithRetry(ctx, fastConfig(), classify, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestSleepFor_RespectsCapWithJitter(t *testing.T) {
	cfg := Config{Base: time.Second, Multiplier: 10, Cap: 2 * time.Second, JitterMax: 100 * time.Millisecond}
	sleep := sleepFor(cfg, 5)
	require.LessOrEqual(t, sleep, cfg.Cap+cfg.JitterMax)
}
