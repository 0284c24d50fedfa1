package sessionflag

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func runFlagTests(t *testing.T, flag Flag) {
	ctx := context.Background()

	verified, err := flag.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, verified)

	require.NoError(t, flag.Set(ctx, "s1"))
	verified, err = flag.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, verified)

	// Setting twice is harmless.
	require.NoError(t, flag.Set(ctx, "s1"))

	verified, err = flag.Get(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, verified, "flags are per session")

	require.NoError(t, flag.Clear(ctx, "s1"))
	verified, err = flag.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestMemoryFlag(t *testing.T) {
	runFlagTests(t, NewMemoryFlag())
}

func TestMemoryFlagTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	flag := NewMemoryFlag(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	require.NoError(t, flag.Set(ctx, "s1"))

	now = now.Add(59 * time.Minute)
	verified, err := flag.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, verified)

	now = now.Add(time.Minute)
	verified, err = flag.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, verified)
	assert.NotContains(t, flag.verified, "s1")
}

func TestRedisFlag(t *testing.T) {
	_, client := newTestRedis(t)
	flag, err := NewRedisFlag(client, "", 0)
	require.NoError(t, err)
	runFlagTests(t, flag)
}

func TestRedisFlagTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	flag, err := NewRedisFlag(client, "app:verified", 30*time.Minute)
	require.NoError(t, err)

	require.NoError(t, flag.Set(ctx, "s1"))
	assert.True(t, mr.Exists("app:verified:s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("app:verified:s1"))

	mr.FastForward(31 * time.Minute)
	verified, err := flag.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestRedisFlagBackendDown(t *testing.T) {
	mr, client := newTestRedis(t)
	flag, err := NewRedisFlag(client, "", 0)
	require.NoError(t, err)
	mr.Close()

	_, err = flag.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, errRedisBackend)
	assert.ErrorIs(t, flag.Set(context.Background(), "s1"), errRedisBackend)
}

func TestNewRedisFlagValidation(t *testing.T) {
	_, err := NewRedisFlag(nil, "", 0)
	assert.Error(t, err)

	_, client := newTestRedis(t)
	_, err = NewRedisFlag(client, "", -time.Second)
	assert.ErrorContains(t, err, "ttl cannot be negative")
}

func TestNewFlag(t *testing.T) {
	flag, err := NewFlag("memory", FlagConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryFlag{}, flag)

	flag, err = NewFlag("postgres", FlagConfig{TTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, flag.(*MemoryFlag).ttl)

	_, client := newTestRedis(t)
	flag, err = NewFlag("redis", FlagConfig{Redis: client})
	require.NoError(t, err)
	assert.IsType(t, &RedisFlag{}, flag)

	_, err = NewFlag("redis", FlagConfig{})
	assert.ErrorContains(t, err, "redis client required")

	_, err = NewFlag("etcd", FlagConfig{})
	assert.ErrorContains(t, err, "unsupported session flag backend")
}
