package model

import "time"

// ChangeKind describes how a workspace file was mutated during an iteration.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// FileChange is an audit record of a workspace filesystem mutation observed
// during an iteration (from a before/after snapshot diff of the Agent
// Session's workspace).
type FileChange struct {
	ID            int64
	WorkItemID    int64
	InteractionID int64
	Path          string
	Kind          ChangeKind
	ContentHash   string
	Size          int64
	ObservedAt    time.Time
}
