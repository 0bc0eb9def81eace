// Package state implements StateManager (§4.1): the single gateway that
// enforces every invariant over Project/WorkItem/Milestone/Interaction/
// Checkpoint/BreakpointEvent/FileChange, serializes mutations through
// per-transaction locking, and publishes change notifications. All other
// components depend on it; it depends on no in-process component.
package state

import (
	"sync"

	"github.com/obra/obra/pkg/store"
)

// ChangeEvent is published whenever a StateManager operation commits a
// mutation, for the Interactive Command Plane and any external observer to
// subscribe to.
type ChangeEvent struct {
	Kind       string // "project", "work_item", "milestone", "interaction", "checkpoint", "breakpoint", "file_change"
	ID         int64
	ProjectID  int64
	WorkItemID int64
	Operation  string // "created", "updated", "deleted"
}

// StateManager is the transactional gateway described by §4.1. It is safe
// for concurrent use.
type StateManager struct {
	store *store.Client

	// MaxDepth bounds how many hops a dependency chain may have before
	// AddDependency rejects the new edge with a dependency-too-deep error
	// (§6's `dependencies.max_depth`). Zero means unlimited; New leaves it
	// unset so existing callers keep today's unbounded behavior unless they
	// opt in.
	MaxDepth int

	mu          sync.Mutex
	subscribers map[int]chan ChangeEvent
	nextSubID   int
}

// New constructs a StateManager over an already-migrated store.Client.
func New(storeClient *store.Client) *StateManager {
	return &StateManager{
		store:       storeClient,
		subscribers: make(map[int]chan ChangeEvent),
	}
}

// Subscribe registers a buffered channel of ChangeEvents. The returned
// unsubscribe function must be called to release it; a slow subscriber
// that fills its buffer has further events silently dropped for it rather
// than blocking StateManager's writers.
func (s *StateManager) Subscribe(buffer int) (<-chan ChangeEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan ChangeEvent, buffer)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}

func (s *StateManager) publish(ev ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
