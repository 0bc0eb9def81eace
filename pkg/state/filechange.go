package state

import (
	"context"

	"github.com/obra/obra/pkg/model"
)

// RecordFileChange appends an audit record of a workspace mutation
// observed during an iteration.
func (s *StateManager) RecordFileChange(ctx context.Context, fc model.FileChange) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		row := q.QueryRowContext(ctx, `
			INSERT INTO file_changes (work_item_id, interaction_id, path, kind, content_hash, size)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			fc.WorkItemID, fc.InteractionID, fc.Path, fc.Kind, fc.ContentHash, fc.Size)
		return row.Scan(&id)
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "file_change", ID: id, WorkItemID: fc.WorkItemID, Operation: "created"})
	return id, nil
}

// FileChanges returns the file changes recorded for a work item, most
// recent first.
func (s *StateManager) FileChanges(ctx context.Context, workItemID int64) ([]model.FileChange, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, work_item_id, interaction_id, path, kind, content_hash, size, observed_at
		FROM file_changes WHERE work_item_id = $1 ORDER BY observed_at DESC`, workItemID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.FileChange
	for rows.Next() {
		var fc model.FileChange
		if err := rows.Scan(&fc.ID, &fc.WorkItemID, &fc.InteractionID, &fc.Path, &fc.Kind, &fc.ContentHash, &fc.Size, &fc.ObservedAt); err != nil {
			return nil, classify(err)
		}
		out = append(out, fc)
	}
	return out, classify(rows.Err())
}
