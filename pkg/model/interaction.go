package model

import "time"

// Decision is the action chosen by the Decision Engine for one iteration (§4.10).
type Decision string

const (
	DecisionAccept   Decision = "accept"
	DecisionRetry    Decision = "retry"
	DecisionClarify  Decision = "clarify"
	DecisionEscalate Decision = "escalate"
	DecisionStop     Decision = "stop"
)

// ErrorKind classifies why an iteration failed, per the taxonomy in §7.
type ErrorKind string

const (
	ErrKindNone                ErrorKind = ""
	ErrKindValidationIncomplete ErrorKind = "validation-incomplete"
	ErrKindValidationLowQuality ErrorKind = "validation-low-quality"
	ErrKindConfidenceLow        ErrorKind = "confidence-low"
	ErrKindAgentTransient       ErrorKind = "agent-transient"
	ErrKindAgentTerminal        ErrorKind = "agent-terminal"
	ErrKindLLMTransient         ErrorKind = "llm-transient"
	ErrKindLLMTerminal          ErrorKind = "llm-terminal"
	ErrKindStorageUnavailable   ErrorKind = "storage-unavailable"
	ErrKindUserStop             ErrorKind = "user-stop"
)

// TokenCounts records prompt/response/estimated token usage for one Interaction.
type TokenCounts struct {
	Prompt    int
	Response  int
	Estimated int
}

// Interaction is an immutable record of one iteration (append-only).
type Interaction struct {
	ID               int64
	WorkItemID       int64
	Iteration        int
	Prompt           string
	Response         string
	ValidatorOK      bool
	ValidatorIssues  []string
	QualityScore     float64
	ConfidenceScore  float64
	Decision         Decision
	ErrorKind        ErrorKind
	ErrorDetail      string
	Duration         time.Duration
	Tokens           TokenCounts
	StartedAt        time.Time
	CompletedAt      time.Time
}
