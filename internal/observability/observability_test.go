package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "murmur-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartServiceSpan(context.Background(), "friends", "send")
	assert.NotNil(t, ctx)
	opErr := errors.New("boom")
	span.Finish(&opErr)
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	id := GenerateCorrelationID()
	assert.Len(t, id, 36)

	ctx := WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, ExtractCorrelationID(ctx))
	assert.Empty(t, ExtractCorrelationID(context.Background()))
}

func TestDatabaseMetricsTrackQuery(t *testing.T) {
	done := NewDatabaseMetrics("metrics_test_table").TrackQuery("select")
	time.Sleep(time.Millisecond)
	assert.NotPanics(t, done)

	_, err := DatabaseQueryLatency.GetMetricWithLabelValues("select", "metrics_test_table")
	assert.NoError(t, err)
}
