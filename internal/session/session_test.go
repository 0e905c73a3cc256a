package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitdew-bot/internal/tariff"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, 10*time.Minute), mr
}

func TestStoreLifecycle(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	st, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.Idle())

	require.NoError(t, store.SelectTier(ctx, 1, tariff.Base))
	st, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, tariff.Base, st.Tier)
	assert.False(t, st.ModeComplete())

	require.NoError(t, store.SelectMode(ctx, 1, tariff.ModeCrossfit))
	st, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, tariff.ModeCrossfit, st.Mode)
	assert.True(t, st.ModeComplete())

	require.NoError(t, store.Clear(ctx, 1))
	st, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.Idle())
}

func TestSelectTierDropsPreviousMode(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SelectTier(ctx, 7, tariff.Base))
	require.NoError(t, store.SelectMode(ctx, 7, tariff.ModeGym))
	require.NoError(t, store.SelectTier(ctx, 7, tariff.Maximum))

	st, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, State{Tier: tariff.Maximum}, st)
	assert.True(t, st.ModeComplete())
}

func TestSessionExpires(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SelectTier(ctx, 9, tariff.Optimal))
	mr.FastForward(11 * time.Minute)

	st, err := store.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, st.Idle())
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SelectTier(ctx, 1, tariff.Optimal))
	st, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, st.Idle())
}
