//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// startPostgres launches a PostgreSQL 16 container and returns a migrated
// connection.
func startPostgres(t *testing.T) *Connection {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "chequeguard_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host: host, Port: port.Int(), User: "test", Password: "test",
		DBName: "chequeguard_test", SSLMode: "disable", MaxConns: 4,
	}
	conn, err := NewConnection(ctx, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	m, err := NewMigrator(conn.DSN(), logging.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "second run is a no-op")
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
	require.NoError(t, m.Close())

	return conn
}

func TestChequeRepository_Integration(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()
	repo := NewChequeRepository(conn.Pool(), logging.NewNopLogger())

	require.NoError(t, conn.HealthCheck(ctx))

	v0, err := repo.Version(ctx)
	require.NoError(t, err)

	_, err = conn.Pool().Exec(ctx, `
		INSERT INTO cheques (id, bank_name, check_amount, check_date, dishonor_date, notice_status, notes)
		VALUES ('c-2', 'MCB', 2500.75, '2024-03-05', '2024-03-20', 'delivered', 'a, b'),
		       ('c-1', 'HBL', NULL, '2024-01-10', NULL, 'pending', NULL)`)
	require.NoError(t, err)

	v1, err := repo.Version(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, v0, v1)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c-1", all[0].ID)
	assert.False(t, all[0].Amount.Valid)
	assert.Nil(t, all[0].DishonorDate)
	assert.Equal(t, "2500.75", all[1].Amount.Decimal.StringFixed(2))
	assert.Equal(t, "2024-03-20", all[1].DishonorDate.String())
	assert.Equal(t, "a, b", all[1].Notes)

	c, err := repo.FindByID(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, "MCB", c.BankName)

	_, err = repo.FindByID(ctx, "nope")
	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeNotFound))
}
