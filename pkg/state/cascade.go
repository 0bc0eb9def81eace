package state

import (
	"context"

	"github.com/obra/obra/pkg/depgraph"
	"github.com/obra/obra/pkg/model"
)

// CascadeBlock marks every non-deleted, non-terminal WorkItem transitively
// dependent on failedID as blocked (§4.12's Cascade operation, applied).
// Called by the Iteration Driver once a work item is marked failed
// (escalation alone does not cascade), so downstream work doesn't sit in
// ReadyWorkItems waiting on a dependency that will never complete.
func (s *StateManager) CascadeBlock(ctx context.Context, failedID int64) ([]int64, error) {
	var blocked []int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		var projectID int64
		if err := q.QueryRowContext(ctx, `SELECT project_id FROM work_items WHERE id = $1 AND NOT deleted`, failedID).Scan(&projectID); err != nil {
			if isNoRows(err) {
				return &NotFoundError{Kind: "work_item", ID: failedID}
			}
			return err
		}

		edges, err := loadDependencyEdges(ctx, q, projectID)
		if err != nil {
			return err
		}

		for _, id := range depgraph.Cascade(edges, failedID) {
			var current model.WorkItemStatus
			if err := q.QueryRowContext(ctx, `SELECT status FROM work_items WHERE id = $1 AND NOT deleted FOR UPDATE`, id).Scan(&current); err != nil {
				if isNoRows(err) {
					continue
				}
				return err
			}
			if !model.CanTransition(current, model.StatusBlocked) {
				continue
			}
			if _, err := q.ExecContext(ctx, `
				UPDATE work_items SET status = $2, updated_at = now() WHERE id = $1`,
				id, model.StatusBlocked); err != nil {
				return err
			}
			blocked = append(blocked, id)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	for _, id := range blocked {
		s.publish(ChangeEvent{Kind: "work_item", ID: id, WorkItemID: id, Operation: "updated"})
	}
	return blocked, nil
}
