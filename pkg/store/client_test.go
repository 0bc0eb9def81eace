package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient starts a disposable PostgreSQL container, applies the
// embedded migrations against it, and returns a ready Client.
func newTestClient(t *testing.T) *Client {
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

	cfg := Config{
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
	}

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClient_MigratesAndConnects(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	status, err := client.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "healthy", status.Status)

	var tableCount int
	err = client.DB().QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'work_items'`,
	).Scan(&tableCount)
	require.NoError(t, err)
	require.Equal(t, 1, tableCount)
}

func TestClient_ConnectionPoolSettings(t *testing.T) {
	client := newTestClient(t)
	stats := client.DB().Stats()
	require.LessOrEqual(t, stats.OpenConnections, 10)
}
