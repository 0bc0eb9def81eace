// Package model defines the entities StateManager owns (§3): Project,
// WorkItem, Milestone, Interaction, Checkpoint, BreakpointEvent, and
// FileChange. Entities reference each other by numeric id; the graph
// itself lives in StateManager, not in pointers between structs.
package model

import "time"

// ProjectStatus is the lifecycle state of a Project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusPaused    ProjectStatus = "paused"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// IsValid reports whether s is one of the recognized project statuses.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	default:
		return false
	}
}

// Project is a working directory plus configuration profile.
type Project struct {
	ID          int64
	Name        string
	Description string
	WorkDir     string // absolute path
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Deleted     bool // soft-delete flag; a Project is never hard-destroyed
}
