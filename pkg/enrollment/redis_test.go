package enrollment

import (
	"context"
	"testing"

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

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		_, client := newTestRedis(t)
		store, err := NewRedisStore(client, "")
		require.NoError(t, err)
		return store
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, client := newTestRedis(t)
	store, err := NewRedisStore(client, "app:2fa")
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "jane@example.com", newRecord("JBSWY3DPEHPK3PXP")))

	assert.True(t, mr.Exists("app:2fa:jane@example.com"))
	assert.Zero(t, mr.TTL("app:2fa:jane@example.com"))
	raw, err := mr.Get("app:2fa:jane@example.com")
	require.NoError(t, err)
	assert.Contains(t, raw, `"secret":"JBSWY3DPEHPK3PXP"`)
	assert.Contains(t, raw, `"verified":false`)
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	store, err := NewRedisStore(client, "")
	require.NoError(t, err)

	_, err = store.CreateIfAbsent(context.Background(), "jane@example.com", newRecord("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)
	assert.True(t, mr.Exists(DEFAULT_REDIS_PREFIX+":jane@example.com"))
}

func TestRedisStore_BackendDown(t *testing.T) {
	mr, client := newTestRedis(t)
	store, err := NewRedisStore(client, "")
	require.NoError(t, err)
	mr.Close()

	_, err = store.Load(context.Background(), "jane@example.com")
	assert.ErrorIs(t, err, errRedisBackend)

	err = store.Save(context.Background(), "jane@example.com", newRecord("X"))
	assert.ErrorIs(t, err, errRedisBackend)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	store, err := NewRedisStore(client, "")
	require.NoError(t, err)
	require.NoError(t, mr.Set(DEFAULT_REDIS_PREFIX+":jane@example.com", "not json"))

	_, err = store.Load(context.Background(), "jane@example.com")
	assert.ErrorContains(t, err, "failed to unmarshal enrollment")
}

func TestNewRedisStoreNilClient(t *testing.T) {
	_, err := NewRedisStore(nil, "")
	assert.Error(t, err)
}
