package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

func TestNewClient_Success(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
	assert.NotNil(t, client.PoolStats())
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	}, logging.NewNopLogger())

	assert.Nil(t, client)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestClient_ClosedRefusesCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close(), "close is idempotent")

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Exists(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Scan(ctx, 0, "*", 10).Err(), ErrClientClosed)
}

// The cache against a real protocol implementation, covering what redismock
// cannot: pattern deletion over a populated keyspace and TTL handling.
func TestCache_AgainstMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, logging.NewNopLogger(), WithPrefix("cg:"), WithTTLJitter(0))
	ctx := context.Background()

	type entry struct {
		N int `json:"n"`
	}
	for i, k := range []string{"pass:r1:2024-09-14", "pass:r1:2024-09-15", "other"} {
		require.NoError(t, cache.Set(ctx, k, entry{N: i}, time.Hour))
	}
	assert.Equal(t, time.Hour, mr.TTL("cg:pass:r1:2024-09-15"))

	var got entry
	require.NoError(t, cache.Get(ctx, "pass:r1:2024-09-15", &got))
	assert.Equal(t, 1, got.N)

	require.NoError(t, cache.DeletePattern(ctx, "pass:*"))
	assert.False(t, mr.Exists("cg:pass:r1:2024-09-14"))
	assert.False(t, mr.Exists("cg:pass:r1:2024-09-15"))
	assert.True(t, mr.Exists("cg:other"))

	mr.FastForward(2 * time.Hour)
	assert.Equal(t, ErrCacheMiss, cache.Get(ctx, "other", &got))
}
