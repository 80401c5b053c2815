package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/folio/internal/store"
)

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := New(store.Config{DSN: dsn})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, db.Put(ctx, "projects_cache-octo", []byte(`{"v":1}`)))
	require.NoError(t, db.Put(ctx, "projects_cache-octo", []byte(`{"v":2}`)))
	got, err := db.Get(ctx, "projects_cache-octo")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestPostgresStore_EmptyDSN(t *testing.T) {
	_, err := New(store.Config{})
	assert.Error(t, err)
}
