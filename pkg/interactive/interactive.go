// Package interactive implements the Interactive Command Plane (§4.13):
// a non-blocking command queue drained at six checkpoints inside each
// iteration, applying pause/resume/stop/to-executor/to-supervisor/
// override-decision commands. A malformed command produces a structured
// error without aborting the iteration.
package interactive

import (
	"context"
	"strings"
	"sync"
)

// CommandKind names the six commands §4.13 specifies.
type CommandKind string

const (
	CommandPause            CommandKind = "pause"
	CommandResume           CommandKind = "resume"
	CommandStop             CommandKind = "stop"
	CommandToExecutor       CommandKind = "to-executor"
	CommandToSupervisor     CommandKind = "to-supervisor"
	CommandOverrideDecision CommandKind = "override-decision"
)

// GuidanceKind classifies a to-supervisor command's text, per §4.13.
type GuidanceKind string

const (
	GuidanceValidation      GuidanceKind = "validation-guidance"
	GuidanceDecisionHint    GuidanceKind = "decision-hint"
	GuidanceFeedbackRequest GuidanceKind = "feedback-request"
)

// Command is one parsed, applicable instruction.
type Command struct {
	Kind           CommandKind
	Text           string // to-executor / to-supervisor payload
	GuidanceKind   GuidanceKind
	OverrideAction string
}

// Guidance is one to-supervisor instruction queued for the supervisor
// LLM stages to consult.
type Guidance struct {
	Kind GuidanceKind
	Text string
}

// ParseError reports a command that doesn't match the grammar; surfaced
// to the user without aborting the iteration.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return "malformed command " + `"` + e.Raw + `": ` + e.Reason
}

// Parse validates raw input against the command grammar.
func Parse(raw string) (Command, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Command{}, &ParseError{Raw: raw, Reason: "empty command"}
	}

	parts := strings.SplitN(trimmed, " ", 2)
	verb := parts[0]
	var rest string
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}

	switch verb {
	case string(CommandPause):
		return Command{Kind: CommandPause}, nil
	case string(CommandResume):
		return Command{Kind: CommandResume}, nil
	case string(CommandStop):
		return Command{Kind: CommandStop}, nil
	case string(CommandToExecutor):
		if rest == "" {
			return Command{}, &ParseError{Raw: raw, Reason: "to-executor requires text"}
		}
		return Command{Kind: CommandToExecutor, Text: rest}, nil
	case string(CommandToSupervisor):
		if rest == "" {
			return Command{}, &ParseError{Raw: raw, Reason: "to-supervisor requires text"}
		}
		return Command{Kind: CommandToSupervisor, Text: rest, GuidanceKind: classifyGuidance(rest)}, nil
	case string(CommandOverrideDecision):
		if rest == "" {
			return Command{}, &ParseError{Raw: raw, Reason: "override-decision requires an action"}
		}
		return Command{Kind: CommandOverrideDecision, OverrideAction: rest}, nil
	default:
		return Command{}, &ParseError{Raw: raw, Reason: "unrecognized command: " + verb}
	}
}

// classifyGuidance buckets to-supervisor free text into one of the three
// guidance kinds §4.13 names: a question is a feedback request, a word
// naming one of the Decision Engine's actions is a decision hint,
// anything else is validation guidance.
func classifyGuidance(text string) GuidanceKind {
	if strings.HasSuffix(text, "?") {
		return GuidanceFeedbackRequest
	}
	lower := strings.ToLower(text)
	for _, hint := range []string{"accept", "retry", "clarify", "escalate"} {
		if strings.Contains(lower, hint) {
			return GuidanceDecisionHint
		}
	}
	return GuidanceValidation
}

// CheckpointResult is what one checkpoint observed: every command applied
// (in order), every malformed command rejected, and whether stop was
// requested as of this checkpoint.
type CheckpointResult struct {
	Applied []Command
	Errors  []*ParseError
	Stopped bool
}

// Plane is the command queue plus the state commands mutate. One Plane
// is shared by a single work item's iteration loop.
type Plane struct {
	mu sync.Mutex

	queue chan string

	paused        bool
	resumeCh      chan struct{}
	stopRequested bool
	toExecutor    string
	guidance      []Guidance
	override      string
}

// New creates a Plane with a buffered command queue; Submit never blocks
// once the buffer is full — a full queue means checkpoints aren't
// draining fast enough and a new command is dropped rather than stalling
// the submitter.
func New(buffer int) *Plane {
	if buffer <= 0 {
		buffer = 16
	}
	return &Plane{queue: make(chan string, buffer), resumeCh: make(chan struct{})}
}

// Submit enqueues raw command text, returning false if the queue is full.
func (p *Plane) Submit(raw string) bool {
	select {
	case p.queue <- raw:
		return true
	default:
		return false
	}
}

// Checkpoint drains every pending command, applies each, and — if a
// pause is in effect and stop has not been requested — blocks until
// Resume is applied or ctx is done. Called at each of the six
// checkpoints inside one iteration (§4.14).
func (p *Plane) Checkpoint(ctx context.Context) CheckpointResult {
	var result CheckpointResult

drain:
	for {
		select {
		case raw := <-p.queue:
			cmd, err := Parse(raw)
			if err != nil {
				if parseErr, ok := err.(*ParseError); ok {
					result.Errors = append(result.Errors, parseErr)
				}
				continue
			}
			p.apply(cmd)
			result.Applied = append(result.Applied, cmd)
		default:
			break drain
		}
	}

	p.mu.Lock()
	result.Stopped = p.stopRequested
	paused := p.paused
	resumeCh := p.resumeCh
	p.mu.Unlock()

	if paused && !result.Stopped {
		select {
		case <-resumeCh:
		case <-ctx.Done():
		}
	}
	return result
}

// apply mutates Plane state for one parsed command. Pause, resume, stop,
// to-executor and override-decision are idempotent: applying the same
// command twice in a row leaves the state unchanged the second time
// (pause-while-paused, resume-while-running, etc. are all no-ops in
// effect even though resumeCh is always replaced on resume). To-supervisor
// appends, so applying it twice queues its guidance twice.
func (p *Plane) apply(cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch cmd.Kind {
	case CommandPause:
		p.paused = true
	case CommandResume:
		p.paused = false
		close(p.resumeCh)
		p.resumeCh = make(chan struct{})
	case CommandStop:
		p.stopRequested = true
	case CommandToExecutor:
		p.toExecutor = cmd.Text // last-wins
	case CommandToSupervisor:
		p.guidance = append(p.guidance, Guidance{Kind: cmd.GuidanceKind, Text: cmd.Text})
	case CommandOverrideDecision:
		p.override = cmd.OverrideAction
	}
}

// StopRequested reports whether a stop command has been applied.
func (p *Plane) StopRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopRequested
}

// TakeExecutorGuidance returns and clears the last to-executor text, to
// be appended to the next prompt.
func (p *Plane) TakeExecutorGuidance() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	text := p.toExecutor
	p.toExecutor = ""
	return text
}

// TakeSupervisorGuidance returns and clears every pending to-supervisor
// instruction.
func (p *Plane) TakeSupervisorGuidance() []Guidance {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := p.guidance
	p.guidance = nil
	return g
}

// TakeOverride returns and clears the pending decision override, valid
// for the current iteration only.
func (p *Plane) TakeOverride() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.override == "" {
		return "", false
	}
	o := p.override
	p.override = ""
	return o, true
}
