// Package agentsession implements the Agent Session plugin contract (§4.4):
// a fresh headless child process is spawned for every Send call, since
// long-lived sessions were observed to lock and deadlock in practice.
// Continuity across iterations is the Prompt Builder's job, not this
// package's.
package agentsession

import (
	"context"
	"time"
)

// Session is the plugin contract an agent-session provider implements.
type Session interface {
	// Initialize validates the workspace and prepares the invocation
	// template. Called once before any Send.
	Initialize(ctx context.Context, cfg Config) error

	// Send executes exactly one prompt against a fresh child process and
	// returns when the agent signals completion or deadline elapses.
	Send(ctx context.Context, prompt string, deadline time.Duration) (string, error)

	// Healthy is a fast liveness probe.
	Healthy() bool

	// Cleanup terminates residual child processes and removes ephemeral
	// files. Safe to call multiple times.
	Cleanup() error
}

// Config configures a Session's workspace and invocation.
type Config struct {
	WorkspaceDir   string
	Command        string // defaults to "claude" if empty
	ExtraArgs      []string
	StallTimeout   time.Duration // 0 disables stall detection
	StartupTimeout time.Duration // 0 disables startup-watchdog
	DrainWindow    time.Duration // wait after the child exits and its stdout is consumed; no completion-marker file is watched
}
