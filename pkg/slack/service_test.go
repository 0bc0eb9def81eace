package slack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	t.Run("NotifyWorkItemStarted is no-op", func(t *testing.T) {
		result := s.NotifyWorkItemStarted(context.Background(), WorkItemStartedInput{
			WorkItemID:              1,
			SlackMessageFingerprint: "test fingerprint",
		})
		assert.Empty(t, result)
	})

	t.Run("NotifyWorkItemCompleted is no-op", func(_ *testing.T) {
		// Should not panic
		s.NotifyWorkItemCompleted(context.Background(), WorkItemCompletedInput{
			WorkItemID: 1,
			Status:     "completed",
		})
	})
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "", Channel: "C123"})
		assert.Nil(t, svc)
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: ""})
		assert.Nil(t, svc)
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(ServiceConfig{
			Token:        "xoxb-test",
			Channel:      "C123",
			DashboardURL: "https://example.com",
		})
		assert.NotNil(t, svc)
	})
}

func TestService_NotifyWorkItemStarted_NoFingerprint(t *testing.T) {
	svc := NewService(ServiceConfig{
		Token:        "xoxb-test",
		Channel:      "C123",
		DashboardURL: "https://example.com",
	})

	result := svc.NotifyWorkItemStarted(context.Background(), WorkItemStartedInput{
		WorkItemID:              1,
		SlackMessageFingerprint: "",
	})
	assert.Empty(t, result, "should skip when no fingerprint")
}
