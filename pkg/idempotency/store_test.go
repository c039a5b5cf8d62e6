package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/test/integration"
)

func TestRedisStore(t *testing.T) {
	addr := integration.Redis(t)
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	s := NewRedisStore(rdb, time.Hour, time.Minute)

	_, ok, err := s.Recall(ctx, "POST /orders", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	locked, err := s.TryLock(ctx, "POST /orders", "k")
	require.NoError(t, err)
	assert.True(t, locked)
	locked, err = s.TryLock(ctx, "POST /orders", "k")
	require.NoError(t, err)
	assert.False(t, locked)

	lockTTL, err := rdb.TTL(ctx, lockKey("POST /orders", "k")).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, lockTTL, time.Minute)

	want := Response{Status: 200, ContentType: "application/json", Body: []byte(`{"ok":true}`), Fingerprint: "abc"}
	require.NoError(t, s.Remember(ctx, "POST /orders", "k", want))
	got, ok, err := s.Recall(ctx, "POST /orders", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, s.Release(ctx, "POST /orders", "k"))
	locked, err = s.TryLock(ctx, "POST /orders", "k")
	require.NoError(t, err)
	assert.True(t, locked)

	ttl, err := rdb.TTL(ctx, respKey("POST /orders", "k")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)
}
