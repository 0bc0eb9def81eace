package hooks

import (
	"context"
	"log/slog"

	"github.com/obra/obra/pkg/model"
)

// CommitWriterHook is the post-completion git auto-commit consumer named in
// §4.15. Git auto-commit is an explicit non-goal (spec.md's Non-goals list
// it as "specified only as a post-completion hook interface"): this
// implementation satisfies the Hook contract and logs what it would have
// committed, without touching a working tree.
type CommitWriterHook struct {
	logger *slog.Logger
}

// NewCommitWriterHook returns a CommitWriterHook.
func NewCommitWriterHook() *CommitWriterHook {
	return &CommitWriterHook{logger: slog.Default().With("component", "commit-writer-hook")}
}

func (h *CommitWriterHook) Name() string { return "commit-writer" }

func (h *CommitWriterHook) Fire(ctx context.Context, event string, item model.WorkItem) error {
	if event != "work_item.completed" {
		return nil
	}
	h.logger.Info("would commit work item changes",
		"work_item_id", item.ID, "kind", item.Kind, "title", item.Title)
	return nil
}

// DocMaintenanceHook is the documentation-maintenance-task-creator named in
// §4.15 and §12: on an epic's completion with documentation flags set, it
// would create a follow-up work item. Documentation-maintenance scheduling
// is an explicit non-goal (spec.md), so this implementation logs the
// follow-up it would have created rather than writing to the store.
type DocMaintenanceHook struct {
	logger *slog.Logger
}

// NewDocMaintenanceHook returns a DocMaintenanceHook.
func NewDocMaintenanceHook() *DocMaintenanceHook {
	return &DocMaintenanceHook{logger: slog.Default().With("component", "doc-maintenance-hook")}
}

func (h *DocMaintenanceHook) Name() string { return "documentation-maintenance-task-creator" }

func (h *DocMaintenanceHook) Fire(ctx context.Context, event string, item model.WorkItem) error {
	if event != "work_item.completed" {
		return nil
	}
	if item.Kind != model.KindEpic {
		return nil
	}
	if !item.RequiresADR && !item.HasArchitecturalChange {
		return nil
	}
	h.logger.Info("would create documentation-maintenance follow-up",
		"epic_id", item.ID, "title", item.Title, "changes_summary", item.ChangesSummary)
	return nil
}
