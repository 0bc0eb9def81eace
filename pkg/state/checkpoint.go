package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/obra/obra/pkg/model"
)

// snapshotWorkItem carries both the public model.WorkItem fields and the
// operational columns (lease, iteration bookkeeping) a restore must also
// put back, without exposing those columns on model.WorkItem itself.
type snapshotWorkItem struct {
	model.WorkItem
	IterationCount      int     `json:"iteration_count"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	ConfidenceScore     float64 `json:"confidence_score"`
}

// snapshotPayload is Checkpoint.Payload's on-disk shape: enough of the
// project's work items and their recorded interactions to restore
// execution state, per model.Checkpoint's doc comment.
type snapshotPayload struct {
	WorkItems    []snapshotWorkItem  `json:"work_items"`
	Interactions []model.Interaction `json:"interactions"`
}

// Snapshot captures a whole-project state snapshot for later manual
// rollback via RestoreCheckpoint.
func (s *StateManager) Snapshot(ctx context.Context, projectID int64, reason string) (int64, error) {
	var checkpointID int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		workItems, err := queryWorkItems(ctx, q, projectID)
		if err != nil {
			return err
		}

		var interactions []model.Interaction
		for _, w := range workItems {
			items, err := queryInteractions(ctx, q, w.ID)
			if err != nil {
				return err
			}
			interactions = append(interactions, items...)
		}

		payload, err := json.Marshal(snapshotPayload{WorkItems: workItems, Interactions: interactions})
		if err != nil {
			return err
		}

		row := q.QueryRowContext(ctx, `
			INSERT INTO checkpoints (project_id, reason, payload) VALUES ($1, $2, $3) RETURNING id`,
			projectID, reason, payload)
		return row.Scan(&checkpointID)
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "checkpoint", ID: checkpointID, ProjectID: projectID, Operation: "created"})
	return checkpointID, nil
}

// RestoreCheckpoint atomically replaces a project's work items with a prior
// Snapshot's contents. Work items created after the snapshot was taken are
// soft-deleted rather than hard-destroyed, preserving the audit trail;
// interactions are append-only and are not replayed.
func (s *StateManager) RestoreCheckpoint(ctx context.Context, checkpointID int64) error {
	var projectID int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		var payload []byte
		row := q.QueryRowContext(ctx, `SELECT project_id, payload FROM checkpoints WHERE id = $1`, checkpointID)
		if err := row.Scan(&projectID, &payload); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "checkpoint", ID: checkpointID}
			}
			return err
		}

		var snap snapshotPayload
		if err := json.Unmarshal(payload, &snap); err != nil {
			return &InvariantViolationError{Reason: "corrupt checkpoint payload: " + err.Error()}
		}

		keep := make([]int64, 0, len(snap.WorkItems))
		for _, w := range snap.WorkItems {
			keep = append(keep, w.ID)
		}
		if _, err := q.ExecContext(ctx, `
			UPDATE work_items SET deleted = true, updated_at = now()
			WHERE project_id = $1 AND NOT deleted AND NOT (id = ANY($2))`,
			projectID, int64ArrayValue(keep)); err != nil {
			return err
		}

		for _, w := range snap.WorkItems {
			metadata, err := json.Marshal(w.Metadata)
			if err != nil {
				return &InvariantViolationError{Reason: "corrupt checkpoint metadata: " + err.Error()}
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO work_items
					(id, project_id, parent_id, epic_id, story_id, kind, title, description, status,
					 documentation_status, priority, depends_on, iteration_count, max_iterations,
					 consecutive_failures, confidence_score, assigned_executor, prompt, result, metadata,
					 requires_adr, has_architectural_changes, changes_summary,
					 created_at, updated_at, started_at, completed_at, deleted)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
					$20, $21, $22, $23, now(), $24, $25, $26, false)
				ON CONFLICT (id) DO UPDATE SET
					status = EXCLUDED.status, documentation_status = EXCLUDED.documentation_status,
					priority = EXCLUDED.priority, depends_on = EXCLUDED.depends_on,
					iteration_count = EXCLUDED.iteration_count, consecutive_failures = EXCLUDED.consecutive_failures,
					confidence_score = EXCLUDED.confidence_score, assigned_executor = EXCLUDED.assigned_executor,
					prompt = EXCLUDED.prompt, result = EXCLUDED.result, metadata = EXCLUDED.metadata,
					requires_adr = EXCLUDED.requires_adr, has_architectural_changes = EXCLUDED.has_architectural_changes,
					changes_summary = EXCLUDED.changes_summary, updated_at = now(),
					started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at, deleted = false`,
				w.ID, w.ProjectID, w.ParentID, w.EpicID, w.StoryID, w.Kind, w.Title, w.Description, w.Status,
				w.DocumentationStatus, w.Priority, int64ArrayValue(w.DependencyIDs), w.IterationCount, w.MaxRetries,
				w.ConsecutiveFailures, w.ConfidenceScore, w.AssignedExecutor, w.Prompt, w.Result, metadata,
				w.RequiresADR, w.HasArchitecturalChange, w.ChangesSummary,
				w.CreatedAt, w.StartedAt, w.CompletedAt); err != nil {
				return err
			}
		}

		_, err := q.ExecContext(ctx, `
			SELECT setval(pg_get_serial_sequence('work_items', 'id'), GREATEST((SELECT max(id) FROM work_items), 1))`)
		return err
	})
	if err != nil {
		return classify(err)
	}

	s.publish(ChangeEvent{Kind: "checkpoint", ID: checkpointID, ProjectID: projectID, Operation: "updated"})
	return nil
}

func queryWorkItems(ctx context.Context, q querier, projectID int64) ([]snapshotWorkItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, parent_id, epic_id, story_id, kind, title, description, status,
		       documentation_status, priority, depends_on, iteration_count, max_iterations,
		       consecutive_failures, confidence_score, assigned_executor, prompt, result, metadata,
		       requires_adr, has_architectural_changes, changes_summary,
		       created_at, updated_at, started_at, completed_at
		FROM work_items WHERE project_id = $1 AND NOT deleted`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []snapshotWorkItem
	for rows.Next() {
		var w snapshotWorkItem
		var deps pgtype.Array[int64]
		var metadata []byte
		if err := rows.Scan(&w.ID, &w.ProjectID, &w.ParentID, &w.EpicID, &w.StoryID, &w.Kind, &w.Title, &w.Description,
			&w.Status, &w.DocumentationStatus, &w.Priority, &deps, &w.IterationCount, &w.MaxRetries, &w.ConsecutiveFailures,
			&w.ConfidenceScore, &w.AssignedExecutor, &w.Prompt, &w.Result, &metadata,
			&w.RequiresADR, &w.HasArchitecturalChange, &w.ChangesSummary,
			&w.CreatedAt, &w.UpdatedAt, &w.StartedAt, &w.CompletedAt); err != nil {
			return nil, err
		}
		w.DependencyIDs = int64ArraySlice(deps)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &w.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func queryInteractions(ctx context.Context, q querier, workItemID int64) ([]model.Interaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, work_item_id, iteration, prompt, response, validator_ok, validator_issues,
		       quality_score, confidence_score, decision, error_kind, error_detail,
		       duration_ms, prompt_tokens, response_tokens, estimated_tokens, started_at, completed_at
		FROM interactions WHERE work_item_id = $1 ORDER BY iteration ASC`, workItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		var in model.Interaction
		var durationMS int64
		var issues pgtype.Array[string]
		if err := rows.Scan(&in.ID, &in.WorkItemID, &in.Iteration, &in.Prompt, &in.Response, &in.ValidatorOK,
			&issues, &in.QualityScore, &in.ConfidenceScore, &in.Decision, &in.ErrorKind, &in.ErrorDetail,
			&durationMS, &in.Tokens.Prompt, &in.Tokens.Response, &in.Tokens.Estimated, &in.StartedAt, &in.CompletedAt); err != nil {
			return nil, err
		}
		in.ValidatorIssues = stringArraySlice(issues)
		in.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, in)
	}
	return out, rows.Err()
}
