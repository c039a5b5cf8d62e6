package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWithSignalsCancelReleasesWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := WithSignals(context.Background())
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestDrainRunsAllClosers(t *testing.T) {
	var order []string
	errA := errors.New("a failed")

	err := Drain(time.Second,
		func(context.Context) error { order = append(order, "a"); return errA },
		func(ctx context.Context) error {
			order = append(order, "b")
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		},
	)

	require.ErrorIs(t, err, errA)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestDrainNoErrors(t *testing.T) {
	assert.NoError(t, Drain(time.Second, func(context.Context) error { return nil }))
}
