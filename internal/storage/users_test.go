package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"fitdew-bot/internal/database"
	"fitdew-bot/internal/models"
	"fitdew-bot/internal/tariff"
)

func setupTestDatabase(t *testing.T) *Users {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s user=testuser password=testpass dbname=testdb port=%s sslmode=disable TimeZone=UTC",
		host, port.Port())
	db, err := database.OpenPostgres(dsn)
	require.NoError(t, err)

	users := NewUsers(db)
	require.NoError(t, users.Migrate(ctx))
	return users
}

func TestUsersIntegration(t *testing.T) {
	users := setupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("find missing returns nil", func(t *testing.T) {
		u, err := users.Find(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("apply grant creates and then updates", func(t *testing.T) {
		first, err := users.ApplyGrant(ctx, Grant{
			TelegramID: 100, Username: "anna", Tier: tariff.Base, Mode: tariff.ModeGym,
			ExpiresAt: now.Add(tariff.Period),
		})
		require.NoError(t, err)
		assert.Equal(t, tariff.Base, first.Tier())
		assert.Equal(t, tariff.ModeGym, first.TierMode())
		assert.Equal(t, models.RoleUser, first.Role)

		require.NoError(t, users.MarkReminded(ctx, 100, *first.TariffExpiresAt))

		second, err := users.ApplyGrant(ctx, Grant{
			TelegramID: 100, Tier: tariff.Maximum, ExpiresAt: now.Add(2 * tariff.Period),
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, tariff.Maximum, second.Tier())
		assert.Equal(t, "anna", second.Username)
		assert.Equal(t, "gym", second.TrainingMode, "mode is untouched without a recognized value")
		assert.Nil(t, second.TariffRemindedFor, "new grant clears the reminder guard")
	})

	t.Run("find expiring uses a half-open window", func(t *testing.T) {
		_, err := users.ApplyGrant(ctx, Grant{TelegramID: 200, Tier: tariff.Optimal, ExpiresAt: now.Add(48 * time.Hour)})
		require.NoError(t, err)
		_, err = users.ApplyGrant(ctx, Grant{TelegramID: 201, Tier: tariff.Optimal, ExpiresAt: now.Add(96 * time.Hour)})
		require.NoError(t, err)

		found, err := users.FindExpiring(ctx, now, now.Add(72*time.Hour))
		require.NoError(t, err)
		ids := make([]int64, 0, len(found))
		for _, u := range found {
			ids = append(ids, u.TelegramID)
		}
		assert.Contains(t, ids, int64(200))
		assert.NotContains(t, ids, int64(201))
	})

	t.Run("mark reminded requires unchanged expiry", func(t *testing.T) {
		u, err := users.ApplyGrant(ctx, Grant{TelegramID: 300, Tier: tariff.Base, ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)

		err = users.MarkReminded(ctx, 300, u.TariffExpiresAt.Add(time.Second))
		assert.ErrorIs(t, err, ErrExpiryChanged)

		require.NoError(t, users.MarkReminded(ctx, 300, *u.TariffExpiresAt))
		got, err := users.Find(ctx, 300)
		require.NoError(t, err)
		require.NotNil(t, got.TariffRemindedFor)
		assert.True(t, got.TariffRemindedFor.Equal(*got.TariffExpiresAt))
	})
}
