package model

import "time"

// Checkpoint is a whole-project snapshot used for manual rollback, distinct
// from the six in-loop "interactive checkpoints" of §4.13.
type Checkpoint struct {
	ID        int64
	ProjectID int64
	Reason    string
	Payload   []byte // serialized project state (work items + their recorded interactions)
	CreatedAt time.Time
}
