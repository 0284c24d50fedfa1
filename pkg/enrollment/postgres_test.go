package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := NewPostgresStore(pool)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	// Running it twice must be harmless.
	require.NoError(t, store.EnsureSchema(ctx))
	return pool
}

func TestPostgresStore(t *testing.T) {
	pool := setupTestDatabase(t)

	runStoreTests(t, func(t *testing.T) Store {
		// Subtests share one table.
		_, err := pool.Exec(context.Background(), "TRUNCATE tfa_enrollments")
		require.NoError(t, err)

		store, err := NewPostgresStore(pool)
		require.NoError(t, err)
		return store
	})
}

func TestNewPostgresStoreNilPool(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.ErrorContains(t, err, "database connection cannot be nil")
}
