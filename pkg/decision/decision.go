// Package decision implements the Decision Engine (§4.10): a pure
// function mapping validator/quality/confidence scores and iteration
// state to one of {accept, retry, clarify, escalate, stop}, evaluated as
// an ordered set of rules where the first match wins.
package decision

// Action is the Decision Engine's output, consumed by the Iteration
// Driver's handle(action) switch (§4.14).
type Action string

const (
	ActionAccept   Action = "accept"
	ActionRetry    Action = "retry"
	ActionClarify  Action = "clarify"
	ActionEscalate Action = "escalate"
	ActionStop     Action = "stop"
)

// Thresholds are configuration-driven with the safe defaults §4.10 names.
type Thresholds struct {
	HighConfidence   float64 // default 0.85
	MediumConfidence float64 // default 0.65
	AcceptQuality    float64 // default 0.7
	RetryCap         int     // default 3
}

// DefaultThresholds returns §4.10's documented safe defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighConfidence:   0.85,
		MediumConfidence: 0.65,
		AcceptQuality:    0.7,
		RetryCap:         3,
	}
}

// Input is every piece of state the Decision Engine's rules consult.
type Input struct {
	StopPending       bool
	IterationCount    int
	MaxIterations     int
	ValidatorOK       bool
	ConsecutiveRetries int
	Confidence        float64
	Quality           float64
}

// Result is the chosen action plus the reason the rule fired, persisted
// onto the Interaction record.
type Result struct {
	Action Action
	Reason string
}

// Decide evaluates the rules in §4.10's order and returns the first
// match. It is a pure function: callers apply any interactive override
// (§4.13) afterward, for the current iteration only.
func Decide(t Thresholds, in Input) Result {
	if in.StopPending {
		return Result{Action: ActionStop, Reason: "stop command pending"}
	}

	if in.MaxIterations > 0 && in.IterationCount >= in.MaxIterations {
		return Result{Action: ActionEscalate, Reason: "max iterations"}
	}

	if !in.ValidatorOK {
		if t.RetryCap > 0 && in.ConsecutiveRetries >= t.RetryCap {
			return Result{Action: ActionEscalate, Reason: "retry cap exceeded"}
		}
		return Result{Action: ActionRetry, Reason: "validator rejected response"}
	}

	if in.Confidence >= t.HighConfidence && in.Quality >= t.AcceptQuality {
		return Result{Action: ActionAccept, Reason: "high confidence and acceptable quality"}
	}

	if in.Confidence >= t.MediumConfidence {
		return Result{Action: ActionClarify, Reason: "medium confidence, requesting clarification"}
	}

	return Result{Action: ActionEscalate, Reason: "confidence below medium threshold"}
}
