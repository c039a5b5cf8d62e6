package tracing

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceparentFollowsActiveSpan(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp, err := Init(context.Background(), "storefront-test", "", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.Empty(t, Traceparent(context.Background()))

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	tpHeader := Traceparent(ctx)
	require.NotEmpty(t, tpHeader)
	assert.True(t, strings.Contains(tpHeader, span.SpanContext().TraceID().String()))

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("x")}})
	var found bool
	for _, h := range headers {
		if h.Key == TraceparentHeader {
			found = true
			assert.Equal(t, tpHeader, string(h.Value))
		}
	}
	assert.True(t, found)
}
