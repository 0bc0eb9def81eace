package state

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/obra/obra/pkg/model"
)

// CreateProject creates a project rooted at an absolute workdir. Names are
// not required to be unique per installation.
func (s *StateManager) CreateProject(ctx context.Context, name, description, workDir string) (int64, error) {
	if !filepath.IsAbs(workDir) {
		return 0, &InvariantViolationError{Reason: fmt.Sprintf("workdir %q must be absolute", workDir)}
	}

	var id int64
	err := s.withTx(ctx, func(ctx context.Context, q querier) error {
		row := q.QueryRowContext(ctx, `
			INSERT INTO projects (name, description, work_dir, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			name, description, workDir, model.ProjectStatusActive)
		return row.Scan(&id)
	})
	if err != nil {
		return 0, classify(err)
	}

	s.publish(ChangeEvent{Kind: "project", ID: id, ProjectID: id, Operation: "created"})
	return id, nil
}

// GetProject fetches a non-deleted project by id.
func (s *StateManager) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, work_dir, status, created_at, updated_at, deleted
		FROM projects WHERE id = $1 AND NOT deleted`, id)

	var p model.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.WorkDir, &p.Status, &p.CreatedAt, &p.UpdatedAt, &p.Deleted); err != nil {
		if isNoRows(err) {
			return nil, &NotFoundError{Kind: "project", ID: id}
		}
		return nil, classify(err)
	}
	return &p, nil
}
