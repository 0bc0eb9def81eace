package model

import "time"

// Severity is the urgency of a BreakpointEvent.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Resolution is the human decision that closes a BreakpointEvent.
type Resolution string

const (
	ResolutionContinue Resolution = "continue"
	ResolutionRetry    Resolution = "retry"
	ResolutionCancel   Resolution = "cancel"
	ResolutionModify   Resolution = "modify"
)

// BreakpointEvent is a human-intervention request. While unresolved the
// owning WorkItem's status is `escalated` and its iteration driver suspended.
type BreakpointEvent struct {
	ID           int64
	WorkItemID   int64
	Severity     Severity
	Reason       string
	Context      map[string]any
	OpenedAt     time.Time
	ResolvedAt   *time.Time
	Resolution   Resolution
	HumanFeedback string
}

// Open reports whether the breakpoint is still awaiting resolution.
func (b *BreakpointEvent) Open() bool { return b.ResolvedAt == nil }
