package hooks

import (
	"context"

	"github.com/obra/obra/pkg/model"
	"github.com/obra/obra/pkg/telemetry"
)

// TelemetryHook records work item completion/failure/escalation counts
// against the telemetry Manager's Prometheus instruments.
type TelemetryHook struct {
	mgr *telemetry.Manager
}

// NewTelemetryHook wraps mgr. mgr may be a disabled Manager; its recording
// methods are no-ops in that case.
func NewTelemetryHook(mgr *telemetry.Manager) *TelemetryHook {
	return &TelemetryHook{mgr: mgr}
}

func (h *TelemetryHook) Name() string { return "telemetry" }

func (h *TelemetryHook) Fire(ctx context.Context, event string, item model.WorkItem) error {
	switch event {
	case "work_item.completed":
		h.mgr.RecordWorkItemCompleted(ctx, string(item.Kind))
	case "work_item.failed":
		h.mgr.RecordWorkItemFailed(ctx, string(item.Kind))
	case "work_item.escalated":
		h.mgr.RecordBreakpointOpened(ctx, string(model.SeverityHigh))
	}
	return nil
}
