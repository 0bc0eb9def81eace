package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// WorkItemStartedInput contains data for a work-item start notification.
type WorkItemStartedInput struct {
	WorkItemID              int64
	Title                   string
	SlackMessageFingerprint string
}

// WorkItemCompletedInput contains data for a terminal work-item notification.
type WorkItemCompletedInput struct {
	WorkItemID              int64
	Title                   string
	Status                  string // completed, failed, escalated
	ChangesSummary          string
	ErrorMessage            string
	SlackMessageFingerprint string
	ThreadTS                string // cached from the start notification
}

// Service handles Slack notification delivery.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyWorkItemStarted sends a "started" notification.
// Only sends if fingerprint is present (Slack-originated work items).
// Returns resolved threadTS for reuse by the terminal notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyWorkItemStarted(ctx context.Context, input WorkItemStartedInput) string {
	if s == nil {
		return ""
	}

	if input.SlackMessageFingerprint == "" {
		return ""
	}

	threadTS, err := s.client.FindMessageByFingerprint(ctx, input.SlackMessageFingerprint)
	if err != nil {
		s.logger.Warn("failed to find Slack thread for fingerprint",
			"work_item_id", input.WorkItemID,
			"fingerprint", input.SlackMessageFingerprint,
			"error", err)
	}

	blocks := BuildStartedMessage(input.WorkItemID, input.Title, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 5*time.Second); err != nil {
		s.logger.Error("failed to send Slack start notification",
			"work_item_id", input.WorkItemID,
			"error", err)
	}

	return threadTS
}

// NotifyWorkItemCompleted sends a terminal status notification.
// Fail-open: errors are logged, never returned.
func (s *Service) NotifyWorkItemCompleted(ctx context.Context, input WorkItemCompletedInput) {
	if s == nil {
		return
	}

	threadTS := input.ThreadTS
	if threadTS == "" && input.SlackMessageFingerprint != "" {
		var err error
		threadTS, err = s.client.FindMessageByFingerprint(ctx, input.SlackMessageFingerprint)
		if err != nil {
			s.logger.Warn("failed to find Slack thread for fingerprint",
				"work_item_id", input.WorkItemID,
				"fingerprint", input.SlackMessageFingerprint,
				"error", err)
		}
	}

	blocks := BuildTerminalMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 10*time.Second); err != nil {
		s.logger.Error("failed to send Slack notification",
			"work_item_id", input.WorkItemID,
			"status", input.Status,
			"error", err)
	}
}
