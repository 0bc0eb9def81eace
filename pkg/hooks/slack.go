package hooks

import (
	"context"
	"fmt"

	"github.com/obra/obra/pkg/model"
	"github.com/obra/obra/pkg/slack"
)

// SlackHook posts a message to a configured channel when a work item
// finishes, built on pkg/slack's notification Service (itself adapted from
// a per-alert-session notifier to WorkItem's status/kind vocabulary).
type SlackHook struct {
	svc *slack.Service
}

// NewSlackHook returns nil if token or channel is empty, matching
// slack.NewService's nil-safe construction.
func NewSlackHook(token, channel, dashboardURL string) *SlackHook {
	svc := slack.NewService(slack.ServiceConfig{
		Token:        token,
		Channel:      channel,
		DashboardURL: dashboardURL,
	})
	if svc == nil {
		return nil
	}
	return &SlackHook{svc: svc}
}

func (h *SlackHook) Name() string { return "slack" }

// Fire posts on work_item.started, work_item.completed, work_item.failed,
// and work_item.escalated; other events (retries, clarifications) are
// ignored since they would otherwise spam the channel on every iteration.
func (h *SlackHook) Fire(ctx context.Context, event string, item model.WorkItem) error {
	if h == nil {
		return nil
	}

	title := fmt.Sprintf("%s #%d: %s", item.Kind, item.ID, item.Title)

	if event == "work_item.started" {
		// Only threads a reply when the work item carries a Slack message
		// fingerprint; Obra's own work items never do, so this is currently
		// always a no-op, same as NotifyWorkItemStarted's nil-fingerprint guard.
		h.svc.NotifyWorkItemStarted(ctx, slack.WorkItemStartedInput{
			WorkItemID: item.ID,
			Title:      title,
		})
		return nil
	}

	status, ok := eventStatus[event]
	if !ok {
		return nil
	}

	errMsg := ""
	if status != "completed" {
		errMsg = item.Result
	}

	h.svc.NotifyWorkItemCompleted(ctx, slack.WorkItemCompletedInput{
		WorkItemID:     item.ID,
		Title:          title,
		Status:         status,
		ChangesSummary: item.ChangesSummary,
		ErrorMessage:   errMsg,
	})
	return nil
}

var eventStatus = map[string]string{
	"work_item.completed": "completed",
	"work_item.failed":    "failed",
	"work_item.escalated": "escalated",
}
