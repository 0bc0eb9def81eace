// Package iteration implements the Iteration Driver (§4.14): the main loop
// binding the Context Builder, Prompt Builder, Agent Session, Retry
// Manager, Response Validator, Quality Controller, Confidence Scorer, and
// Decision Engine together around one work item, draining the Interactive
// Command Plane at six checkpoints per iteration.
package iteration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/obra/obra/pkg/agentsession"
	"github.com/obra/obra/pkg/confidence"
	"github.com/obra/obra/pkg/contextbuilder"
	"github.com/obra/obra/pkg/decision"
	"github.com/obra/obra/pkg/interactive"
	"github.com/obra/obra/pkg/model"
	"github.com/obra/obra/pkg/promptbuilder"
	"github.com/obra/obra/pkg/quality"
	"github.com/obra/obra/pkg/retry"
	"github.com/obra/obra/pkg/state"
	"github.com/obra/obra/pkg/validator"
)

// HookDispatcher fires built-in and configured hooks on completion events
// (§4.15). Declared locally so this package doesn't depend on the hook
// registry's own dependency set.
type HookDispatcher interface {
	Fire(ctx context.Context, event string, item model.WorkItem) error
}

// Config parameterizes one Driver's thresholds, budgets, and deadlines.
type Config struct {
	Header             promptbuilder.Header
	ValidatorRules     validator.Rules
	Weights            confidence.Weights
	Thresholds         decision.Thresholds
	Retry              retry.Config
	SendDeadline       time.Duration
	ContextWindow      int
	ReserveForResponse int
	SafetyMargin       int
	// WorkspaceDir, when set, is snapshotted before and after every Send
	// call so the resulting diff can be persisted as FileChange records.
	// Left empty, file-change tracking is skipped entirely.
	WorkspaceDir string
}

// DefaultConfig returns the safe defaults named across §4.9–§4.11 plus
// reasonable token-budget and deadline values.
func DefaultConfig() Config {
	return Config{
		Weights:            confidence.DefaultWeights(),
		Thresholds:         decision.DefaultThresholds(),
		Retry:              retry.DefaultConfig(),
		SendDeadline:       5 * time.Minute,
		ContextWindow:      128_000,
		ReserveForResponse: 4_000,
		SafetyMargin:       1_000,
	}
}

// Driver runs one work item to completion, escalation, or stop.
type Driver struct {
	State   *state.StateManager
	Session agentsession.Session
	Quality *quality.Controller
	Builder *contextbuilder.Builder
	Plane   *interactive.Plane
	Hooks   HookDispatcher
	Owner   string
	Config  Config
}

// Run drives iterations for workItemID until the Decision Engine chooses
// accept or stop, a breakpoint is opened and later resolved (any
// resolution ends Run; see escalate), or ctx is cancelled. It implements the loop in §4.14 exactly.
func (d *Driver) Run(ctx context.Context, workItemID int64) error {
	if err := d.State.UpdateStatus(ctx, workItemID, model.StatusInProgress, d.Owner); err != nil {
		return fmt.Errorf("iteration: mark in-progress: %w", err)
	}

	if d.Hooks != nil {
		if item, err := d.State.GetWorkItem(ctx, workItemID); err == nil {
			if err := d.Hooks.Fire(ctx, "work_item.started", *item); err != nil {
				return fmt.Errorf("iteration: fire start hooks: %w", err)
			}
		}
	}

	consecutiveRetries := 0
	priorFailures := 0

	for iteration := 1; ; iteration++ {
		if cp := d.Plane.Checkpoint(ctx); cp.Stopped {
			return d.stop(ctx, workItemID)
		}

		item, err := d.State.GetWorkItem(ctx, workItemID)
		if err != nil {
			return fmt.Errorf("iteration: fetch work item: %w", err)
		}
		history, err := d.State.Interactions(ctx, workItemID)
		if err != nil {
			return fmt.Errorf("iteration: fetch history: %w", err)
		}

		prompt := d.buildPrompt(ctx, *item, history)
		if cp := d.Plane.Checkpoint(ctx); cp.Stopped {
			return d.stop(ctx, workItemID)
		}

		before := agentsession.SnapshotWorkspace(d.Config.WorkspaceDir)

		started := time.Now()
		response, attempts, sendErr := retry.WithRetry(ctx, d.Config.Retry, classifySendError, func(ctx context.Context) (string, error) {
			return d.Session.Send(ctx, prompt, d.Config.SendDeadline)
		})
		if cp := d.Plane.Checkpoint(ctx); cp.Stopped {
			return d.stop(ctx, workItemID)
		}

		var changes []agentsession.WorkspaceChange
		if sendErr == nil && d.Config.WorkspaceDir != "" {
			changes = agentsession.DiffWorkspace(before, agentsession.SnapshotWorkspace(d.Config.WorkspaceDir))
		}

		if sendErr != nil {
			priorFailures++
			d.recordFailure(ctx, *item, iteration, prompt, started, sendErr, attempts)
			if iteration >= effectiveMaxIterations(item.MaxRetries) {
				return d.escalate(ctx, workItemID, "agent session failed at max iterations: "+sendErr.Error())
			}
			continue
		}

		vResult := validator.Validate(response, d.Config.ValidatorRules)
		guidance := d.Plane.TakeSupervisorGuidance()

		var qScore quality.Score
		if vResult.OK {
			qScore = d.Quality.Evaluate(ctx, quality.Input{
				WorkItem:      *item,
				Response:      response,
				Criteria:      supervisorCriteria(guidance),
				ObservedFiles: observedFiles(changes),
			})
		} else {
			qScore = quality.Score{Value: 0, Issues: []string{"response failed validation, quality not evaluated"}}
		}

		cResult := confidence.Score(d.Config.Weights, confidence.Input{
			ValidatorOK:    vResult.OK,
			QualityScore:   qScore.Value,
			AgentHealthy:   d.Session.Healthy(),
			IterationCount: iteration,
			MaxIterations:  item.MaxRetries,
			PriorFailures:  priorFailures,
		})

		if cp := d.Plane.Checkpoint(ctx); cp.Stopped {
			return d.stop(ctx, workItemID)
		}

		decisionResult := decision.Decide(d.Config.Thresholds, decision.Input{
			StopPending:        d.Plane.StopRequested(),
			IterationCount:     iteration,
			MaxIterations:      item.MaxRetries,
			ValidatorOK:        vResult.OK,
			ConsecutiveRetries: consecutiveRetries,
			Confidence:         cResult.Value,
			Quality:            qScore.Value,
		})
		action := decisionResult.Action
		if override, ok := d.Plane.TakeOverride(); ok {
			action = decision.Action(override)
		}

		cp := d.Plane.Checkpoint(ctx)
		if cp.Stopped {
			action = decision.ActionStop
		}

		interactionID, err := d.State.RecordInteraction(ctx, model.Interaction{
			WorkItemID:      workItemID,
			Iteration:       iteration,
			Prompt:          prompt,
			Response:        response,
			ValidatorOK:     vResult.OK,
			ValidatorIssues: vResult.Issues,
			QualityScore:    qScore.Value,
			ConfidenceScore: cResult.Value,
			Decision:        model.Decision(action),
			StartedAt:       started,
			CompletedAt:     time.Now(),
		})
		if err != nil {
			return fmt.Errorf("iteration: record interaction: %w", err)
		}
		d.recordFileChanges(ctx, workItemID, interactionID, changes)

		switch action {
		case decision.ActionAccept:
			summary := changesSummary(changes)
			if err := d.State.UpdateWorkItemOutcome(ctx, workItemID, "", summary, item.RequiresADR, item.HasArchitecturalChange); err != nil {
				return fmt.Errorf("iteration: persist completion outcome: %w", err)
			}
			item.ChangesSummary = summary
			if err := d.State.UpdateStatus(ctx, workItemID, model.StatusCompleted, d.Owner); err != nil {
				return fmt.Errorf("iteration: mark completed: %w", err)
			}
			if d.Hooks != nil {
				if err := d.Hooks.Fire(ctx, "work_item.completed", *item); err != nil {
					return fmt.Errorf("iteration: fire completion hooks: %w", err)
				}
			}
			return nil

		case decision.ActionRetry:
			consecutiveRetries++
			if cp := d.Plane.Checkpoint(ctx); cp.Stopped {
				return d.stop(ctx, workItemID)
			}
			if iteration >= effectiveMaxIterations(item.MaxRetries) {
				return d.escalate(ctx, workItemID, "retry exhausted at max iterations")
			}
			continue

		case decision.ActionClarify:
			consecutiveRetries = 0
			if cp := d.Plane.Checkpoint(ctx); cp.Stopped {
				return d.stop(ctx, workItemID)
			}
			if iteration >= effectiveMaxIterations(item.MaxRetries) {
				return d.escalate(ctx, workItemID, "clarification requested at max iterations")
			}
			continue

		case decision.ActionEscalate:
			return d.escalate(ctx, workItemID, decisionResult.Reason)

		case decision.ActionStop:
			return d.stop(ctx, workItemID)

		default:
			return fmt.Errorf("iteration: unknown decision action %q", action)
		}
	}
}

// recordFailure persists an Interaction for an iteration whose Agent
// Session call never produced a response, so the failure is visible in
// history even though no executor text exists to validate.
func (d *Driver) recordFailure(ctx context.Context, item model.WorkItem, iteration int, prompt string, started time.Time, sendErr error, attempts []retry.Attempt) {
	detail := sendErr.Error()
	if len(attempts) > 0 {
		detail = fmt.Sprintf("%s (after %d attempts)", detail, len(attempts))
	}
	_, _ = d.State.RecordInteraction(ctx, model.Interaction{
		WorkItemID:  item.ID,
		Iteration:   iteration,
		Prompt:      prompt,
		Decision:    model.DecisionRetry,
		ErrorKind:   classifyErrorKind(sendErr),
		ErrorDetail: detail,
		StartedAt:   started,
		CompletedAt: time.Now(),
	})
}

// recordFileChanges persists one FileChange per workspace diff entry,
// logging rather than failing the iteration on a store error since the
// audit trail is best-effort against the already-completed interaction.
func (d *Driver) recordFileChanges(ctx context.Context, workItemID, interactionID int64, changes []agentsession.WorkspaceChange) {
	for _, c := range changes {
		_, _ = d.State.RecordFileChange(ctx, model.FileChange{
			WorkItemID:    workItemID,
			InteractionID: interactionID,
			Path:          c.Path,
			Kind:          model.ChangeKind(c.Kind),
			ContentHash:   c.Hash,
			Size:          c.Size,
		})
	}
}

// escalate opens a breakpoint and blocks until a human resolves it. A
// `retry`/`continue`/`modify` resolution returns the item to `pending`,
// which is the scheduler's signal to re-dispatch it; this Driver instance
// ends here rather than looping further, since `pending` isn't a status
// this Driver can itself resume from (it must pass back through `ready`).
// A `cancel` resolution moves the item directly to `failed`.
func (d *Driver) escalate(ctx context.Context, workItemID int64, reason string) error {
	events, unsubscribe := d.State.Subscribe(8)
	defer unsubscribe()

	breakpointID, err := d.State.OpenBreakpoint(ctx, workItemID, model.SeverityHigh, reason, nil)
	if err != nil {
		return fmt.Errorf("iteration: open breakpoint: %w", err)
	}

	if item, getErr := d.State.GetWorkItem(ctx, workItemID); getErr == nil {
		if err := d.State.UpdateWorkItemOutcome(ctx, workItemID, reason, item.ChangesSummary, item.RequiresADR, item.HasArchitecturalChange); err != nil {
			return fmt.Errorf("iteration: persist escalation outcome: %w", err)
		}
		item.Result = reason
		if d.Hooks != nil {
			if hookErr := d.Hooks.Fire(ctx, "work_item.escalated", *item); hookErr != nil {
				return fmt.Errorf("iteration: fire escalation hooks: %w", hookErr)
			}
		}
	}

	if err := d.waitForResolution(ctx, events, breakpointID); err != nil {
		return err
	}

	if item, getErr := d.State.GetWorkItem(ctx, workItemID); getErr == nil && item.Status == model.StatusFailed {
		if _, err := d.State.CascadeBlock(ctx, workItemID); err != nil {
			return fmt.Errorf("iteration: cascade block dependents: %w", err)
		}
		if d.Hooks != nil {
			if hookErr := d.Hooks.Fire(ctx, "work_item.failed", *item); hookErr != nil {
				return fmt.Errorf("iteration: fire failure hooks: %w", hookErr)
			}
		}
	}
	return nil
}

// waitForResolution blocks until ResolveBreakpoint closes breakpointID.
func (d *Driver) waitForResolution(ctx context.Context, events <-chan state.ChangeEvent, breakpointID int64) error {
	for {
		select {
		case ev := <-events:
			if ev.Kind == "breakpoint" && ev.ID == breakpointID && ev.Operation == "updated" {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// stop leaves the work item's status as-is: `in-progress` has no transition
// to a paused state in §3's table, so a human-issued stop command simply
// ends this Driver's loop, leaving the lease in place for an operator to
// inspect or clear.
func (d *Driver) stop(ctx context.Context, workItemID int64) error {
	return nil
}

// buildPrompt assembles one iteration's context and renders the prompt,
// folding in any pending to-executor guidance from the Interactive
// Command Plane.
func (d *Driver) buildPrompt(ctx context.Context, item model.WorkItem, history []model.Interaction) string {
	var mostRecent *model.Interaction
	if len(history) > 0 {
		mostRecent = &history[len(history)-1]
	}

	sections := []contextbuilder.Section{
		contextbuilder.WorkItemSection(item),
		contextbuilder.MostRecentInteractionSection(mostRecent),
		contextbuilder.PriorInteractionsSection(history),
		contextbuilder.UserGuidanceSection(d.Plane.TakeExecutorGuidance()),
	}

	ctxText, err := d.Builder.Build(ctx, contextbuilder.Input{
		Sections:           sections,
		ContextWindow:      d.Config.ContextWindow,
		ReserveForResponse: d.Config.ReserveForResponse,
		SafetyMargin:       d.Config.SafetyMargin,
	})
	if err != nil {
		// The Context Builder only errors on summarizer failure; fall back to
		// the unshrunk work-item section rather than sending an empty prompt.
		ctxText = item.Description
	}

	return promptbuilder.Build(promptbuilder.Input{
		Header:       d.Config.Header,
		Context:      ctxText,
		Instructions: "Complete the work item above. Address every issue noted under Most Recent Attempt before anything else.",
	})
}

// supervisorCriteria folds queued to-supervisor guidance into the free-text
// criteria the Quality Controller's LLM evaluation is scored against — the
// only supervisor-LLM call in the loop, so every GuidanceKind lands here.
func supervisorCriteria(guidance []interactive.Guidance) string {
	if len(guidance) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, g := range guidance {
		fmt.Fprintf(&sb, "[%s] %s\n", g.Kind, g.Text)
	}
	return sb.String()
}

// observedFiles adapts a workspace diff into the plain path list the
// Quality Controller's local file-presence check consults.
func observedFiles(changes []agentsession.WorkspaceChange) []string {
	if len(changes) == 0 {
		return nil
	}
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	return paths
}

// changesSummary renders a workspace diff as the short human-readable
// narrative persisted onto WorkItem.ChangesSummary.
func changesSummary(changes []agentsession.WorkspaceChange) string {
	if len(changes) == 0 {
		return ""
	}
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = fmt.Sprintf("%s (%s)", c.Path, c.Kind)
	}
	return strings.Join(paths, ", ")
}

// classifySendError maps agentsession's sentinel errors onto retry
// Classes: a dead child or exceeded deadline is worth another attempt with
// no change to the prompt, a spawn or workspace failure is terminal.
func classifySendError(err error) retry.Class {
	switch {
	case errors.Is(err, agentsession.ErrChildDiedEarly), errors.Is(err, agentsession.ErrDeadlineExceeded):
		return retry.ClassRetryableTransient
	case errors.Is(err, agentsession.ErrOutputTruncated):
		return retry.ClassRetryableWithFeedback
	default:
		return retry.ClassTerminal
	}
}

// classifyErrorKind maps a Send failure onto the taxonomy persisted with
// the Interaction record (§7).
func classifyErrorKind(err error) model.ErrorKind {
	switch {
	case errors.Is(err, agentsession.ErrSpawnFailed), errors.Is(err, agentsession.ErrWorkspaceInvalid):
		return model.ErrKindAgentTerminal
	default:
		return model.ErrKindAgentTransient
	}
}

// effectiveMaxIterations treats a non-positive MaxRetries as "never force
// escalation on iteration count alone."
func effectiveMaxIterations(maxRetries int) int {
	if maxRetries <= 0 {
		return 1<<31 - 1
	}
	return maxRetries
}
