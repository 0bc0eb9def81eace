// Package retry implements the Retry Manager (§4.11): error
// classification into {retryable-transient, retryable-with-feedback,
// terminal}, an exponential-backoff-plus-jitter sleep schedule, a maximum
// attempt count, and a single wrapping operation that returns either a
// successful result or the final error with its attempt history.
//
// This is distinct from llmclient's own internal retry decorator, which
// only ever sees a binary retryable/terminal split on transport errors.
// The Iteration Driver wraps each Agent Session Send call in WithRetry.
// WithRetry retries the with-feedback class on the same schedule as the
// transient class and records the class in each Attempt; it does not
// change the operation's input between attempts.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Class is the outcome of classifying an error.
type Class string

const (
	// ClassRetryableTransient is retried with no change to the operation's
	// input — a network blip, a timeout.
	ClassRetryableTransient Class = "retryable-transient"
	// ClassRetryableWithFeedback is retried, but the caller should fold the
	// error into the next attempt's input (e.g. validator feedback).
	ClassRetryableWithFeedback Class = "retryable-with-feedback"
	// ClassTerminal is never retried.
	ClassTerminal Class = "terminal"
)

// Classifier assigns a Class to an error returned from an operation.
type Classifier func(error) Class

// Config parameterizes the backoff schedule and attempt budget.
type Config struct {
	Base        time.Duration
	Multiplier  float64
	Cap         time.Duration
	JitterMax   time.Duration
	MaxAttempts int
}

// DefaultConfig matches llmclient's DefaultBackoffConfig shape and its
// total of five calls (MaxAttempts counts the first call, where
// DefaultBackoffConfig's MaxRetries does not), adding jitter.
func DefaultConfig() Config {
	return Config{
		Base:        250 * time.Millisecond,
		Multiplier:  2.0,
		Cap:         10 * time.Second,
		JitterMax:   250 * time.Millisecond,
		MaxAttempts: 5,
	}
}

// Attempt records one try.
type Attempt struct {
	Number int
	Err    error
	Class  Class
	Slept  time.Duration
}

// sleepFor computes sleep = min(cap, base*mult^attempt) + uniform jitter
// in [0, jitterMax], per §4.11.
func sleepFor(cfg Config, attempt int) time.Duration {
	backoff := float64(cfg.Base) * pow(cfg.Multiplier, attempt)
	if capped := float64(cfg.Cap); backoff > capped {
		backoff = capped
	}
	jitter := time.Duration(0)
	if cfg.JitterMax > 0 {
		jitter = time.Duration(rand.Int64N(int64(cfg.JitterMax) + 1))
	}
	return time.Duration(backoff) + jitter
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// WithRetry runs op, classifying any error and retrying per cfg until it
// succeeds, hits a terminal error, or exhausts MaxAttempts. It returns the
// successful value, or the zero value and the final error, plus the full
// attempt history either way.
func WithRetry[T any](ctx context.Context, cfg Config, classifier Classifier, op func(ctx context.Context) (T, error)) (T, []Attempt, error) {
	var history []Attempt
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			history = append(history, Attempt{Number: attempt})
			return value, history, nil
		}

		class := classifier(err)
		record := Attempt{Number: attempt, Err: err, Class: class}

		if class == ClassTerminal || attempt == maxAttempts {
			history = append(history, record)
			var zero T
			return zero, history, err
		}

		sleep := sleepFor(cfg, attempt)
		record.Slept = sleep
		history = append(history, record)

		select {
		case <-ctx.Done():
			var zero T
			return zero, history, ctx.Err()
		case <-time.After(sleep):
		}
	}

	var zero T
	return zero, history, context.DeadlineExceeded
}
