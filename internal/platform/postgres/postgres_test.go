package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/platform/postgres"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/test/integration"
)

func TestTransactorAndOutboxStore(t *testing.T) {
	pool := integration.PostgresPool(t)
	ctx := context.Background()
	tx := postgres.NewTransactor(pool)
	store := postgres.NewOutboxStore(slog.New(slog.NewTextHandler(io.Discard, nil)), pool)

	ev, err := outbox.NewEvent("order", "1", "OrderCreated", map[string]int{"order_id": 1}, "")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		assert.True(t, postgres.InTx(ctx))
		require.NoError(t, store.Append(ctx, ev))
		return boom
	})
	require.ErrorIs(t, err, boom)

	batch, err := store.LockBatch(ctx, "r1", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, batch, "rolled back event must not be visible")

	require.NoError(t, tx.WithinTx(ctx, func(ctx context.Context) error {
		return tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := store.Append(ctx, ev); err != nil {
				return err
			}
			return store.Append(ctx, ev)
		})
	}))

	batch, err = store.LockBatch(ctx, "r1", 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "OrderCreated", batch[0].Type)
	assert.JSONEq(t, `{"order_id":1}`, string(batch[0].Payload))

	rest, err := store.LockBatch(ctx, "r2", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.NotEqual(t, batch[0].ID, rest[0].ID)

	require.NoError(t, store.MarkSent(ctx, []int64{batch[0].ID}))
	require.NoError(t, store.MarkFailed(ctx, rest[0].ID, "broker down", 2))

	again, err := store.LockBatch(ctx, "r3", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1, "failed once with retries left goes back to pending")
	assert.Equal(t, 1, again[0].RetryCount)

	require.NoError(t, store.MarkFailed(ctx, again[0].ID, "broker down", 2))
	parked, err := store.LockBatch(ctx, "r4", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, parked)

	assert.Error(t, store.MarkSent(ctx, []int64{9999}))
}

func TestExpiredLeaseIsReclaimed(t *testing.T) {
	pool := integration.PostgresPool(t)
	ctx := context.Background()
	store := postgres.NewOutboxStore(slog.New(slog.NewTextHandler(io.Discard, nil)), pool)

	ev, err := outbox.NewEvent("product", "1", "ProductCreated", map[string]string{}, "")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, ev))

	first, err := store.LockBatch(ctx, "r1", 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.Eventually(t, func() bool {
		again, err := store.LockBatch(ctx, "r2", 10, time.Minute)
		return err == nil && len(again) == 1
	}, 5*time.Second, 100*time.Millisecond)
}
