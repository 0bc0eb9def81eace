package model

import "time"

// Milestone is a zero-duration checkpoint tied to completion of a set of epics.
type Milestone struct {
	ID             int64
	ProjectID      int64
	Name           string
	Description    string
	TargetDate     *time.Time
	RequiredEpicIDs []int64
	Achieved       bool
	AchievedAt     *time.Time
	Version        string
	Metadata       map[string]any
}
