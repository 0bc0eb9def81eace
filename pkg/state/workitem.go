package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/obra/obra/pkg/depgraph"
	"github.com/obra/obra/pkg/model"
)

// CreateWorkItem inserts a new pending WorkItem after validating the
// kind-specific hierarchy invariants from §3.
func (s *StateManager) CreateWorkItem(ctx context.Context, w model.WorkItem) (int64, error) {
	metadata, err := json.Marshal(w.Metadata)
	if err != nil {
		return 0, &InvariantViolationError{Reason: "metadata must be JSON-serializable: " + err.Error()}
	}

	var id int64
	err = s.withTx(ctx, func(ctx context.Context, q querier) error {
		var parentKind model.WorkItemKind
		if w.ParentID != nil {
			row := q.QueryRowContext(ctx, `SELECT kind FROM work_items WHERE id = $1 AND NOT deleted`, *w.ParentID)
			if err := row.Scan(&parentKind); err != nil {
				if isNoRows(err) {
					return &NotFoundError{Kind: "work_item", ID: *w.ParentID}
				}
				return err
			}
		}
		if err := w.ValidateHierarchy(parentKind); err != nil {
			return &InvariantViolationError{Reason: err.Error()}
		}

		row := q.QueryRowContext(ctx, `
			INSERT INTO work_items
				(project_id, parent_id, epic_id, story_id, kind, title, description, status,
				 documentation_status, priority, depends_on, max_iterations, assigned_executor,
				 prompt, result, metadata, requires_adr, has_architectural_changes, changes_summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			RETURNING id`,
			w.ProjectID, w.ParentID, w.EpicID, w.StoryID, w.Kind, w.Title, w.Description, model.StatusPending,
			model.DocStatusPending, w.Priority, int64ArrayValue(w.DependencyIDs), w.MaxRetries, w.AssignedExecutor,
			w.Prompt, w.Result, metadata, w.RequiresADR, w.HasArchitecturalChange, w.ChangesSummary)
		return row.Scan(&id)
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "work_item", ID: id, ProjectID: w.ProjectID, WorkItemID: id, Operation: "created"})
	return id, nil
}

// AddDependency records that `from` depends on `to`, rejecting the edge if
// it would introduce a cycle (verified by a trial topological sort over the
// project's full dependency graph).
func (s *StateManager) AddDependency(ctx context.Context, from, to int64) error {
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		var projectID int64
		if err := q.QueryRowContext(ctx, `SELECT project_id FROM work_items WHERE id = $1 AND NOT deleted`, from).Scan(&projectID); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "work_item", ID: from}
			}
			return err
		}
		var toProjectID int64
		if err := q.QueryRowContext(ctx, `SELECT project_id FROM work_items WHERE id = $1 AND NOT deleted`, to).Scan(&toProjectID); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "work_item", ID: to}
			}
			return err
		}
		if projectID != toProjectID {
			return &InvariantViolationError{Reason: "dependencies must be within the same project"}
		}

		edges, err := loadDependencyEdges(ctx, q, projectID)
		if err != nil {
			return err
		}
		edges[from] = append(edges[from], to)

		if _, err := depgraph.TopoSort(edges); err != nil {
			return &InvariantViolationError{Reason: fmt.Sprintf("would introduce a cycle: %v", err)}
		}
		if s.MaxDepth > 0 && depgraph.DepthLimited(edges, from, s.MaxDepth) {
			return &InvariantViolationError{Reason: fmt.Sprintf("dependency chain exceeds max depth %d", s.MaxDepth)}
		}

		_, err = q.ExecContext(ctx, `
			UPDATE work_items SET depends_on = array_append(depends_on, $2), updated_at = now()
			WHERE id = $1`, from, to)
		return err
	})
	return classify(err)
}

func loadDependencyEdges(ctx context.Context, q querier, projectID int64) (map[int64][]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, depends_on FROM work_items WHERE project_id = $1 AND NOT deleted`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make(map[int64][]int64)
	for rows.Next() {
		var id int64
		var deps pgtype.Array[int64]
		if err := rows.Scan(&id, &deps); err != nil {
			return nil, err
		}
		edges[id] = append(edges[id], int64ArraySlice(deps)...)
	}
	return edges, rows.Err()
}

// UpdateStatus transitions a WorkItem's status, enforcing the transition
// table in §3, assigning the single-writer lease on entry to `in-progress`
// and releasing it on any terminal status or `escalated`.
func (s *StateManager) UpdateStatus(ctx context.Context, id int64, newStatus model.WorkItemStatus, leaseOwner string) error {
	if !newStatus.IsValid() {
		return &InvariantViolationError{Reason: "unknown status " + string(newStatus)}
	}

	var achievedMilestones []int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		var current model.WorkItemStatus
		var kind model.WorkItemKind
		var projectID int64
		row := q.QueryRowContext(ctx, `SELECT status, kind, project_id FROM work_items WHERE id = $1 AND NOT deleted FOR UPDATE`, id)
		if err := row.Scan(&current, &kind, &projectID); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "work_item", ID: id}
			}
			return err
		}

		if newStatus == model.StatusInProgress {
			var existingOwner string
			var expiresAt *time.Time
			_ = q.QueryRowContext(ctx, `SELECT lease_owner, lease_expires_at FROM work_items WHERE id = $1`, id).Scan(&existingOwner, &expiresAt)
			if existingOwner != "" && existingOwner != leaseOwner && expiresAt != nil && expiresAt.After(time.Now()) {
				return &ConflictError{Reason: fmt.Sprintf("work item %d leased by %q", id, existingOwner)}
			}
		}

		if !model.CanTransition(current, newStatus) {
			return &model.TransitionError{From: current, To: newStatus}
		}

		switch newStatus {
		case model.StatusInProgress:
			_, err := q.ExecContext(ctx, `
				UPDATE work_items SET status = $2, lease_owner = $3,
					lease_expires_at = now() + interval '5 minutes', started_at = COALESCE(started_at, now()),
					updated_at = now()
				WHERE id = $1`, id, newStatus, leaseOwner)
			if err != nil {
				return err
			}
		case model.StatusCompleted, model.StatusFailed, model.StatusEscalated:
			_, err := q.ExecContext(ctx, `
				UPDATE work_items SET status = $2, lease_owner = '', lease_expires_at = NULL,
					completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
					updated_at = now()
				WHERE id = $1`, id, newStatus)
			if err != nil {
				return err
			}
		default:
			_, err := q.ExecContext(ctx, `UPDATE work_items SET status = $2, updated_at = now() WHERE id = $1`, id, newStatus)
			if err != nil {
				return err
			}
		}

		if newStatus == model.StatusCompleted && kind == model.KindEpic {
			achieved, err := computeMilestoneCompletion(ctx, q, projectID)
			if err != nil {
				return err
			}
			achievedMilestones = achieved
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	s.publish(ChangeEvent{Kind: "work_item", ID: id, WorkItemID: id, Operation: "updated"})
	for _, mid := range achievedMilestones {
		s.publish(ChangeEvent{Kind: "milestone", ID: mid, Operation: "updated"})
	}
	return nil
}

// computeMilestoneCompletion marks milestones achieved once every epic in
// their required set has completed, atomically with the epic transition
// that may have triggered it.
func computeMilestoneCompletion(ctx context.Context, q querier, projectID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, required_epic_ids FROM milestones
		WHERE project_id = $1 AND NOT achieved`, projectID)
	if err != nil {
		return nil, err
	}
	type candidate struct {
		id   int64
		deps pgtype.Array[int64]
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.deps); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var achieved []int64
	for _, c := range candidates {
		deps := int64ArraySlice(c.deps)
		if len(deps) == 0 {
			continue
		}
		var incomplete int
		if err := q.QueryRowContext(ctx, `
			SELECT count(*) FROM work_items
			WHERE id = ANY($1) AND status != 'completed'`, int64ArrayValue(deps)).Scan(&incomplete); err != nil {
			return nil, err
		}
		if incomplete == 0 {
			if _, err := q.ExecContext(ctx, `UPDATE milestones SET achieved = true, achieved_at = now() WHERE id = $1`, c.id); err != nil {
				return nil, err
			}
			achieved = append(achieved, c.id)
		}
	}
	return achieved, nil
}

// GetWorkItem fetches a non-deleted WorkItem by id.
func (s *StateManager) GetWorkItem(ctx context.Context, id int64) (*model.WorkItem, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, project_id, parent_id, epic_id, story_id, kind, title, description, status,
		       documentation_status, priority, depends_on, max_iterations, assigned_executor, prompt,
		       result, metadata, requires_adr, has_architectural_changes, changes_summary,
		       created_at, updated_at, started_at, completed_at
		FROM work_items WHERE id = $1 AND NOT deleted`, id)

	var w model.WorkItem
	var deps pgtype.Array[int64]
	var metadata []byte
	if err := row.Scan(&w.ID, &w.ProjectID, &w.ParentID, &w.EpicID, &w.StoryID, &w.Kind, &w.Title, &w.Description,
		&w.Status, &w.DocumentationStatus, &w.Priority, &deps, &w.MaxRetries, &w.AssignedExecutor, &w.Prompt,
		&w.Result, &metadata, &w.RequiresADR, &w.HasArchitecturalChange, &w.ChangesSummary,
		&w.CreatedAt, &w.UpdatedAt, &w.StartedAt, &w.CompletedAt); err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Kind: "work_item", ID: id}
		}
		return nil, classify(err)
	}
	w.DependencyIDs = int64ArraySlice(deps)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &w.Metadata); err != nil {
			return nil, classify(err)
		}
	}
	return &w, nil
}

// UpdateWorkItemOutcome persists the result narrative, changes summary, and
// documentation flags an iteration observed, independent of the status
// transition carrying it (UpdateStatus moves status/lease only). Called by
// the Iteration Driver once a response is accepted or an item is escalated,
// so item.Result and item.ChangesSummary survive past the in-memory
// model.WorkItem that produced them.
func (s *StateManager) UpdateWorkItemOutcome(ctx context.Context, id int64, result, changesSummary string, requiresADR, hasArchitecturalChange bool) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE work_items SET result = $2, changes_summary = $3, requires_adr = $4,
			has_architectural_changes = $5, updated_at = now()
		WHERE id = $1 AND NOT deleted`, id, result, changesSummary, requiresADR, hasArchitecturalChange)
	if err != nil {
		return classify(err)
	}

	s.publish(ChangeEvent{Kind: "work_item", ID: id, WorkItemID: id, Operation: "updated"})
	return nil
}

// ReadyWorkItems returns the ids of non-deleted, pending WorkItems in
// project whose dependencies are all completed, ordered by priority
// descending then created-at ascending.
func (s *StateManager) ReadyWorkItems(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT w.id
		FROM work_items w
		WHERE w.project_id = $1 AND NOT w.deleted AND w.status = 'pending'
		  AND NOT EXISTS (
		      SELECT 1 FROM unnest(w.depends_on) dep
		      JOIN work_items d ON d.id = dep
		      WHERE d.status != 'completed'
		  )
		ORDER BY w.priority DESC, w.created_at ASC`, projectID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify(err)
		}
		ids = append(ids, id)
	}
	return ids, classify(rows.Err())
}
