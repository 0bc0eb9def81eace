package state

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/obra/obra/pkg/model"
)

// CreateMilestone registers a milestone that becomes achieved once every
// epic in RequiredEpicIDs reaches `completed` (checked transactionally by
// computeMilestoneCompletion on each epic completion).
func (s *StateManager) CreateMilestone(ctx context.Context, m model.Milestone) (int64, error) {
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return 0, &InvariantViolationError{Reason: "metadata must be JSON-serializable: " + err.Error()}
	}

	var id int64
	err = s.withTx(ctx, func(ctx context.Context, q querier) error {
		row := q.QueryRowContext(ctx, `
			INSERT INTO milestones (project_id, name, description, target_date, required_epic_ids, version, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			m.ProjectID, m.Name, m.Description, m.TargetDate, int64ArrayValue(m.RequiredEpicIDs), m.Version, metadata)
		return row.Scan(&id)
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "milestone", ID: id, ProjectID: m.ProjectID, Operation: "created"})
	return id, nil
}

// Milestones returns every milestone recorded for a project.
func (s *StateManager) Milestones(ctx context.Context, projectID int64) ([]model.Milestone, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, project_id, name, description, target_date, required_epic_ids, achieved, achieved_at, version, metadata
		FROM milestones WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.Milestone
	for rows.Next() {
		var m model.Milestone
		var depsArr pgtype.Array[int64]
		var metadata []byte
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.Description, &m.TargetDate, &depsArr,
			&m.Achieved, &m.AchievedAt, &m.Version, &metadata); err != nil {
			return nil, classify(err)
		}
		m.RequiredEpicIDs = int64ArraySlice(depsArr)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
				return nil, classify(err)
			}
		}
		out = append(out, m)
	}
	return out, classify(rows.Err())
}
