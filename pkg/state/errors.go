package state

import (
	"errors"
	"fmt"
)

// Sentinel errors every StateManager operation's returned error can be
// tested against with errors.Is.
var (
	ErrNotFound           = errors.New("state: not found")
	ErrInvariantViolation = errors.New("state: invariant violation")
	ErrConflict           = errors.New("state: conflict")
	ErrStorageUnavailable = errors.New("state: storage unavailable")
)

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("state: %s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvariantViolationError reports a rejected mutation and why.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "state: invariant violation: " + e.Reason
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// ConflictError reports a lease or concurrency conflict.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "state: conflict: " + e.Reason
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StorageUnavailableError wraps an underlying storage-layer failure.
type StorageUnavailableError struct {
	Cause error
}

func (e *StorageUnavailableError) Error() string {
	return "state: storage unavailable: " + e.Cause.Error()
}

func (e *StorageUnavailableError) Unwrap() error { return ErrStorageUnavailable }
