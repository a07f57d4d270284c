//go:build integration

package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/cuongbtq/xe-rate-worker/shared/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStorage_SaveRate_Postgres(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("rates_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := postgresql.NewClient(&postgresql.Config{URI: connStr}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, b, _, _ := runtime.Caller(0)
	migrationPath := filepath.Join(filepath.Dir(b), "..", "..", "..", "migrations")
	require.NoError(t, client.RunMigrations(migrationPath))
	// second run is a no-op
	require.NoError(t, client.RunMigrations(migrationPath))

	s := NewStorage(client.GetDB(), "exchange_rates", logger)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveRate(ctx, &domain.RateResult{From: "HKD", To: "USD", Rate: "0.13"}))
	}

	var rows []domain.RateResult
	err = client.GetDB().SelectContext(ctx, &rows,
		`SELECT id, from_currency, to_currency, rate, created_at FROM exchange_rates ORDER BY id`)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, "HKD", r.From)
		assert.Equal(t, "USD", r.To)
		assert.Equal(t, "0.13", r.Rate)
		assert.False(t, r.CreatedAt.IsZero())
	}
	assert.Less(t, rows[0].ID, rows[2].ID)
}
