package llmclient

import "errors"

// Sentinel errors classifying LLM Client failures (§4.3).
var (
	ErrUnavailable  = errors.New("llm: provider unavailable")
	ErrTimeout      = errors.New("llm: request timed out")
	ErrModelMissing = errors.New("llm: model not found")
	ErrProtocol     = errors.New("llm: malformed response")
	ErrRateLimited  = errors.New("llm: rate limited")
	ErrInternal     = errors.New("llm: internal error")
)

// CallError wraps one of the sentinels above with provider context.
type CallError struct {
	Provider string
	Sentinel error
	Detail   string
}

func (e *CallError) Error() string {
	if e.Detail == "" {
		return e.Provider + ": " + e.Sentinel.Error()
	}
	return e.Provider + ": " + e.Sentinel.Error() + ": " + e.Detail
}

func (e *CallError) Unwrap() error { return e.Sentinel }

// retryable reports whether err (or anything it wraps) should be retried by
// Decorated's backoff loop per §4.3: timeouts, connection failures, and
// rate-limiting are retryable; malformed responses and missing models are
// terminal.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable), errors.Is(err, ErrRateLimited):
		return true
	default:
		return false
	}
}
