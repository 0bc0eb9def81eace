// Package hooks implements the Hook Dispatcher (§4.15): post-completion
// fan-out to independent consumers, each isolated from the others'
// failures. A hook failure is logged and counted but never changes the
// work item's already-persisted status.
package hooks

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/obra/obra/pkg/model"
)

// Hook is one post-completion consumer. Name identifies it in logs and
// counters; Fire is called once per dispatched event.
type Hook interface {
	Name() string
	Fire(ctx context.Context, event string, item model.WorkItem) error
}

// Dispatcher fans an event out to every registered hook, isolating each
// hook's failure from the others and from the caller.
type Dispatcher struct {
	hooks  []Hook
	logger *slog.Logger

	fired  atomic.Int64
	errors atomic.Int64
}

// NewDispatcher builds a Dispatcher over the given hooks, in fire order.
func NewDispatcher(hooks ...Hook) *Dispatcher {
	return &Dispatcher{
		hooks:  hooks,
		logger: slog.Default().With("component", "hook-dispatcher"),
	}
}

// Fire dispatches event to every registered hook. Each hook's error is
// logged and counted; Fire itself always returns nil, since a hook's
// failure must never affect the work item's status (§4.15).
func (d *Dispatcher) Fire(ctx context.Context, event string, item model.WorkItem) error {
	for _, h := range d.hooks {
		d.fired.Add(1)
		if err := h.Fire(ctx, event, item); err != nil {
			d.errors.Add(1)
			d.logger.Error("hook failed",
				"hook", h.Name(), "event", event, "work_item_id", item.ID, "error", err)
		}
	}
	return nil
}

// Stats reports total fire attempts and errors across every hook, for the
// telemetry-emitter hook or a diagnostics endpoint to expose.
func (d *Dispatcher) Stats() (fired, errors int64) {
	return d.fired.Load(), d.errors.Load()
}
