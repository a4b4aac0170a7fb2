package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "user-7:transfer-001"
	value := []byte(`{"reference":"WTX-1","status":"successful"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, mr.Exists("wallet-ledger:idem:"+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte(`{}`), time.Second))
	mr.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should miss")
}

func TestIdempotencyCache_NonPositiveTTLSkipsWrite(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)

	require.NoError(t, cache.Set(context.Background(), "k", []byte(`{}`), 0))
	assert.False(t, mr.Exists("wallet-ledger:idem:k"))
}

func TestIdempotencyCache_ConnectionError(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	mr.Close()

	_, err := cache.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis idempotency get")
}
