package model

import "time"

// WorkItemKind discriminates the work hierarchy: epic > story > task > subtask.
type WorkItemKind string

const (
	KindEpic    WorkItemKind = "epic"
	KindStory   WorkItemKind = "story"
	KindTask    WorkItemKind = "task"
	KindSubtask WorkItemKind = "subtask"
)

// IsValid reports whether k is a recognized work item kind.
func (k WorkItemKind) IsValid() bool {
	switch k {
	case KindEpic, KindStory, KindTask, KindSubtask:
		return true
	default:
		return false
	}
}

// WorkItemStatus is the lifecycle state of a WorkItem (§3 status transitions).
type WorkItemStatus string

const (
	StatusPending     WorkItemStatus = "pending"
	StatusReady       WorkItemStatus = "ready"
	StatusInProgress  WorkItemStatus = "in-progress"
	StatusBlocked     WorkItemStatus = "blocked"
	StatusCompleted   WorkItemStatus = "completed"
	StatusFailed      WorkItemStatus = "failed"
	StatusEscalated   WorkItemStatus = "escalated"
)

// IsValid reports whether s is a recognized work item status.
func (s WorkItemStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusReady, StatusInProgress, StatusBlocked,
		StatusCompleted, StatusFailed, StatusEscalated:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a terminal status requiring no further work.
func (s WorkItemStatus) Terminal() bool {
	return s == StatusCompleted
}

// DocumentationStatus tracks whether doc-maintenance has run for a work item.
type DocumentationStatus string

const (
	DocStatusPending DocumentationStatus = "pending"
	DocStatusUpdated DocumentationStatus = "updated"
	DocStatusSkipped DocumentationStatus = "skipped"
)

// validTransitions enumerates the allowed non-trivial status transitions.
// `blocked` is reachable from any non-terminal status and is therefore
// handled separately in CanTransition rather than listed per source state.
var validTransitions = map[WorkItemStatus]map[WorkItemStatus]bool{
	StatusPending:    {StatusReady: true},
	StatusReady:      {StatusInProgress: true},
	StatusInProgress: {StatusCompleted: true, StatusFailed: true, StatusEscalated: true},
	StatusFailed:     {StatusPending: true},
	StatusEscalated:  {StatusPending: true},
}

// CanTransition reports whether moving a WorkItem from `from` to `to` is
// legal per the state machine in spec §3. `completed` is terminal.
func CanTransition(from, to WorkItemStatus) bool {
	if from == StatusCompleted {
		return false
	}
	if to == StatusBlocked {
		return from != StatusCompleted
	}
	return validTransitions[from][to]
}

// WorkItem is the unifying entity across epic/story/task/subtask.
type WorkItem struct {
	ID        int64
	ProjectID int64
	ParentID  *int64
	EpicID    *int64
	StoryID   *int64

	Kind        WorkItemKind
	Title       string
	Description string
	Status      WorkItemStatus
	Priority    int // higher wins

	DependencyIDs []int64 // ordered multiset of WorkItem ids this item depends on

	RetryCount int
	MaxRetries int

	AssignedExecutor string
	Prompt           string
	Result           string
	Metadata         map[string]any

	RequiresADR            bool
	HasArchitecturalChange bool
	ChangesSummary         string
	DocumentationStatus    DocumentationStatus

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Deleted     bool
}

// ValidateHierarchy checks the kind-specific invariants from spec §3.
// parentKind is the kind of ParentID's WorkItem, or "" if ParentID is nil.
func (w *WorkItem) ValidateHierarchy(parentKind WorkItemKind) error {
	switch w.Kind {
	case KindEpic:
		if w.ParentID != nil || w.EpicID != nil || w.StoryID != nil {
			return ErrInvariantViolation("epic must not set parent-id, epic-id, or story-id")
		}
	case KindStory:
		if w.EpicID == nil {
			return ErrInvariantViolation("story must set epic-id")
		}
		if w.StoryID != nil {
			return ErrInvariantViolation("story must not set story-id")
		}
	case KindTask:
		// epic-id and story-id may be null or both set; never only one.
		if (w.EpicID == nil) != (w.StoryID == nil) {
			return ErrInvariantViolation("task epic-id and story-id must both be set or both be null")
		}
	case KindSubtask:
		if w.ParentID == nil {
			return ErrInvariantViolation("subtask must set parent-id")
		}
		if parentKind != KindTask && parentKind != KindSubtask {
			return ErrInvariantViolation("subtask parent must be a task or subtask")
		}
	default:
		return ErrInvariantViolation("unknown work item kind: " + string(w.Kind))
	}
	return nil
}
