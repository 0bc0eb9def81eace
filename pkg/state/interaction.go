package state

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/obra/obra/pkg/model"
)

// RecordInteraction appends an immutable Interaction record for a WorkItem.
func (s *StateManager) RecordInteraction(ctx context.Context, in model.Interaction) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		row := q.QueryRowContext(ctx, `
			INSERT INTO interactions
				(work_item_id, iteration, prompt, response, validator_ok, validator_issues,
				 quality_score, confidence_score, decision, error_kind, error_detail,
				 duration_ms, prompt_tokens, response_tokens, estimated_tokens,
				 started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING id`,
			in.WorkItemID, in.Iteration, in.Prompt, in.Response, in.ValidatorOK, stringArrayValue(in.ValidatorIssues),
			in.QualityScore, in.ConfidenceScore, in.Decision, in.ErrorKind, in.ErrorDetail,
			in.Duration.Milliseconds(), in.Tokens.Prompt, in.Tokens.Response, in.Tokens.Estimated,
			in.StartedAt, in.CompletedAt)
		if err := row.Scan(&id); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `UPDATE work_items SET iteration_count = iteration_count + 1 WHERE id = $1`, in.WorkItemID)
		return err
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "interaction", ID: id, WorkItemID: in.WorkItemID, Operation: "created"})
	return id, nil
}

// Interactions returns every interaction recorded for a work item, ordered
// by iteration ascending.
func (s *StateManager) Interactions(ctx context.Context, workItemID int64) ([]model.Interaction, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, work_item_id, iteration, prompt, response, validator_ok, validator_issues,
		       quality_score, confidence_score, decision, error_kind, error_detail,
		       duration_ms, prompt_tokens, response_tokens, estimated_tokens, started_at, completed_at
		FROM interactions WHERE work_item_id = $1 ORDER BY iteration ASC`, workItemID)
	if err != nil {
		return nil, classify(err)
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
			return nil, classify(err)
		}
		in.ValidatorIssues = stringArraySlice(issues)
		in.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, in)
	}
	return out, classify(rows.Err())
}
