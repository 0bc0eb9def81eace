package llmclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// BackoffConfig parameterizes the retry decorator's exponential backoff.
type BackoffConfig struct {
	Base       time.Duration
	Multiplier float64
	Cap        time.Duration
	MaxRetries uint64
}

// DefaultBackoffConfig matches the teacher worker pool's retry shape:
// short base, capped growth, small retry budget for a latency-sensitive path.
var DefaultBackoffConfig = BackoffConfig{
	Base:       250 * time.Millisecond,
	Multiplier: 2.0,
	Cap:        10 * time.Second,
	MaxRetries: 4,
}

// Decorated wraps a Client with a bounded LRU response cache and
// exponential-backoff retries on transient errors, per §4.3.
type Decorated struct {
	inner   Client
	cache   *lru.Cache[string, string]
	backoff BackoffConfig
}

// NewDecorated wraps inner with caching (capacity entries) and retry
// behavior. capacity <= 0 disables caching.
func NewDecorated(inner Client, capacity int, bo BackoffConfig) (*Decorated, error) {
	d := &Decorated{inner: inner, backoff: bo}
	if capacity > 0 {
		cache, err := lru.New[string, string](capacity)
		if err != nil {
			return nil, fmt.Errorf("llmclient: failed to create cache: %w", err)
		}
		d.cache = cache
	}
	return d, nil
}

func cacheKey(prompt string, opts Options) (string, bool) {
	if opts.CacheKeyHint != "" {
		return opts.CacheKeyHint, true
	}
	h := sha256.New()
	h.Write([]byte(prompt))
	fmt.Fprintf(h, "|%f|%d|%v", opts.Temperature, opts.MaxTokens, opts.StopSequences)
	return hex.EncodeToString(h.Sum(nil)), true
}

// Generate checks the cache, then calls through to inner with retries.
func (d *Decorated) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var key string
	if d.cache != nil {
		if k, ok := cacheKey(prompt, opts); ok {
			key = k
			if cached, hit := d.cache.Get(key); hit {
				return cached, nil
			}
		}
	}

	var result string
	op := func() error {
		text, err := d.inner.Generate(ctx, prompt, opts)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = text
		return nil
	}

	if err := backoff.Retry(op, d.retryPolicy(ctx)); err != nil {
		return "", err
	}

	if d.cache != nil && key != "" {
		d.cache.Add(key, result)
	}
	return result, nil
}

// GenerateStream is not cacheable and is not retried after it starts
// emitting chunks: a partially-consumed stream cannot be safely replayed.
func (d *Decorated) GenerateStream(ctx context.Context, prompt string, opts Options) (<-chan Chunk, error) {
	var ch <-chan Chunk
	op := func() error {
		c, err := d.inner.GenerateStream(ctx, prompt, opts)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		ch = c
		return nil
	}
	if err := backoff.Retry(op, d.retryPolicy(ctx)); err != nil {
		return nil, err
	}
	return ch, nil
}

func (d *Decorated) EstimateTokens(text string) int { return d.inner.EstimateTokens(text) }

func (d *Decorated) Available(ctx context.Context) bool { return d.inner.Available(ctx) }

func (d *Decorated) ModelInfo() ModelInfo { return d.inner.ModelInfo() }

func (d *Decorated) retryPolicy(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.backoff.Base
	eb.Multiplier = d.backoff.Multiplier
	eb.MaxInterval = d.backoff.Cap
	eb.MaxElapsedTime = 0 // bounded by MaxRetries instead
	return backoff.WithContext(backoff.WithMaxRetries(eb, d.backoff.MaxRetries), ctx)
}
