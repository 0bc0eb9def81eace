package agentsession

import "errors"

// Sentinel errors classifying Agent Session failures (§4.4).
var (
	ErrSpawnFailed     = errors.New("agentsession: spawn failed")
	ErrDeadlineExceeded = errors.New("agentsession: deadline exceeded")
	ErrChildDiedEarly  = errors.New("agentsession: child died early")
	ErrOutputTruncated = errors.New("agentsession: output truncated")
	ErrWorkspaceInvalid = errors.New("agentsession: workspace invalid")
)

// SessionError wraps one of the sentinels above with the failing command
// and any exit detail.
type SessionError struct {
	Command string
	Detail  string
	err     error
}

func (e *SessionError) Error() string {
	if e.Detail == "" {
		return e.Command + ": " + e.err.Error()
	}
	return e.Command + ": " + e.err.Error() + ": " + e.Detail
}

func (e *SessionError) Unwrap() error { return e.err }

func newSessionError(sentinel error, command, detail string) *SessionError {
	return &SessionError{Command: command, Detail: detail, err: sentinel}
}
