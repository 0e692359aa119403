package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowScope/internal/model"
)

func newTestRedisStore(t *testing.T, opts RedisOptions) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	store := NewRedisStoreWithClient(client, opts)
	t.Cleanup(func() { _ = store.Close() })
	return store, server
}

func TestRedisStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t, RedisOptions{Prefix: "escrow:"})

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "1:disputed:3", `{"key":"1:disputed:3"}`))
	value, err := store.Get(ctx, "1:disputed:3")
	require.NoError(t, err)
	assert.Equal(t, `{"key":"1:disputed:3"}`, value)

	raw, err := server.Get("escrow:1:disputed:3")
	require.NoError(t, err)
	assert.Equal(t, value, raw)
	assert.False(t, server.Exists("1:disputed:3"))
}

func TestRedisStoreExpiresKeys(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t, RedisOptions{Expiration: time.Minute})

	require.NoError(t, store.Set(ctx, "k", "v"))
	assert.Equal(t, time.Minute, server.TTL("k"))

	server.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreReportsServerErrors(t *testing.T) {
	ctx := context.Background()
	store, server := newTestRedisStore(t, RedisOptions{})
	server.SetError("ERR injected failure")

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Set(ctx, "k", "v"))
}

func TestRedisStoreBacksEventCache(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t, RedisOptions{Prefix: "escrow:"})
	key := Key(5, model.EventPaymentReleased, []string{"2", "1"})
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	writer := NewEventCache(store, nil, nil)
	_, err := writer.Write(ctx, key, []model.EventRecord{record("1", "0x01", 10, base)})
	require.NoError(t, err)
	_, err = writer.Merge(ctx, key, []model.EventRecord{record("2", "0x02", 11, base.Add(time.Minute))})
	require.NoError(t, err)

	entry, ok, err := NewEventCache(store, nil, nil).Read(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entry.Records, 2)
	assert.Equal(t, "0x02", entry.Records[0].TxHash)
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{})
	assert.Error(t, err)

	server := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisOptions{Addr: server.Addr()})
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
