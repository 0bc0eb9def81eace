package state

import (
	"context"
	"encoding/json"

	"github.com/obra/obra/pkg/model"
)

// OpenBreakpoint records a human-intervention request and flips the
// work item's status to `escalated`.
func (s *StateManager) OpenBreakpoint(ctx context.Context, workItemID int64, severity model.Severity, reason string, breakpointCtx map[string]any) (int64, error) {
	ctxJSON, err := json.Marshal(breakpointCtx)
	if err != nil {
		return 0, &InvariantViolationError{Reason: "context must be JSON-serializable: " + err.Error()}
	}

	var id int64
	err = s.withTx(ctx, func(ctx context.Context, q querier) error {
		row := q.QueryRowContext(ctx, `
			INSERT INTO breakpoint_events (work_item_id, severity, reason, context)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, workItemID, severity, reason, ctxJSON)
		if err := row.Scan(&id); err != nil {
			return err
		}

		var current model.WorkItemStatus
		if err := q.QueryRowContext(ctx, `SELECT status FROM work_items WHERE id = $1 AND NOT deleted FOR UPDATE`, workItemID).Scan(&current); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "work_item", ID: workItemID}
			}
			return err
		}
		if !model.CanTransition(current, model.StatusEscalated) {
			return &model.TransitionError{From: current, To: model.StatusEscalated}
		}
		_, err := q.ExecContext(ctx, `UPDATE work_items SET status = $2, updated_at = now() WHERE id = $1`, workItemID, model.StatusEscalated)
		return err
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "breakpoint", ID: id, WorkItemID: workItemID, Operation: "created"})
	return id, nil
}

// ResolveBreakpoint closes a breakpoint and restores the owning work item's
// status according to resolution: `retry`/`continue` return it to
// `pending` for re-evaluation, `cancel` marks it `failed`, `modify` returns
// it to `pending` with human feedback available to the next prompt.
func (s *StateManager) ResolveBreakpoint(ctx context.Context, id int64, resolution model.Resolution, feedback string) error {
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		var workItemID int64
		var resolvedAt any
		row := q.QueryRowContext(ctx, `SELECT work_item_id, resolved_at FROM breakpoint_events WHERE id = $1 FOR UPDATE`, id)
		if err := row.Scan(&workItemID, &resolvedAt); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "breakpoint_event", ID: id}
			}
			return err
		}
		if resolvedAt != nil {
			return &InvariantViolationError{Reason: "breakpoint already resolved"}
		}

		if _, err := q.ExecContext(ctx, `
			UPDATE breakpoint_events SET resolved_at = now(), resolution = $2, human_feedback = $3
			WHERE id = $1`, id, resolution, feedback); err != nil {
			return err
		}

		// Bypasses the normal transition table: resolving a breakpoint is the
		// one path where escalated moves directly to a non-pending status.
		newStatus := model.StatusPending
		if resolution == model.ResolutionCancel {
			newStatus = model.StatusFailed
		}
		_, err := q.ExecContext(ctx, `UPDATE work_items SET status = $2, updated_at = now() WHERE id = $1`, workItemID, newStatus)
		return err
	})
	if err != nil {
		return classify(err)
	}

	s.publish(ChangeEvent{Kind: "breakpoint", ID: id, Operation: "updated"})
	return nil
}
