package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/obra/obra/pkg/store"
)

// newTestManager starts a disposable PostgreSQL container, applies the
// embedded migrations, and returns a ready StateManager.
func newTestManager(t *testing.T) *StateManager {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("obra_test"),
		postgres.WithUsername("obra"),
		postgres.WithPassword("obra"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := store.NewClient(ctx, store.Config{
		Host:            host,
		Port:            port.Int(),
		User:            "obra",
		Password:        "obra",
		Database:        "obra_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	return New(client)
}

func newTestProject(t *testing.T, s *StateManager) int64 {
	t.Helper()
	id, err := s.CreateProject(context.Background(), "demo", "", "/tmp/demo")
	require.NoError(t, err)
	return id
}

func TestSubscribe_ReceivesPublishedEvents(t *testing.T) {
	s := newTestManager(t)
	ch, unsubscribe := s.Subscribe(4)
	defer unsubscribe()

	newTestProject(t, s)

	select {
	case ev := <-ch:
		require.Equal(t, "project", ev.Kind)
		require.Equal(t, "created", ev.Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
