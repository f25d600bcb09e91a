package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devx-commerce/medusa-strapi-plugin/internal/application/cmssync"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/domain/cms"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/event"
	"github.com/devx-commerce/medusa-strapi-plugin/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

var (
	_ cmssync.MetricsRecorder = (*telemetry.SyncMetrics)(nil)
	_ event.DispatchObserver  = (*telemetry.SyncMetrics)(nil)
)

func newTestMeterProvider(t *testing.T) (*telemetry.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp, err := telemetry.NewMeterProviderWithReader(telemetry.MetricsConfig{ServiceName: "test"}, zap.NewNop(), reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func sumPoints(t *testing.T, rm metricdata.ResourceMetrics, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)
	return sum.DataPoints
}

func valueFor(points []metricdata.DataPoint[int64], kvs ...attribute.KeyValue) int64 {
	want := attribute.NewSet(kvs...)
	for _, p := range points {
		if p.Attributes.Equals(&want) {
			return p.Value
		}
	}
	return 0
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "test-service",
	}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestCounterAndHistogram(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	ctx := context.Background()
	meter := mp.Meter("test")

	counter, err := telemetry.NewCounter(meter, "test_counter", "Test counter", "1")
	require.NoError(t, err)
	counter.Add(ctx, 5, attribute.String("method", "GET"))
	counter.Inc(ctx, attribute.String("method", "GET"))
	counter.Inc(ctx, attribute.String("method", "POST"))

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 250*time.Millisecond)
	hist.Record(ctx, 1.5)

	rm := collect(t, reader)
	points := sumPoints(t, rm, "test_counter")
	assert.Equal(t, int64(6), valueFor(points, attribute.String("method", "GET")))
	assert.Equal(t, int64(1), valueFor(points, attribute.String("method", "POST")))

	m, ok := findMetric(rm, "test_duration_seconds")
	require.True(t, ok)
	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(2), h.DataPoints[0].Count)
	assert.Equal(t, telemetry.HTTPDurationBuckets, h.DataPoints[0].Bounds)
}

func TestSyncMetrics_RecordOperation(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	ctx := context.Background()

	sm, err := telemetry.NewSyncMetrics(mp)
	require.NoError(t, err)

	sm.RecordOperation(ctx, cms.EntityProduct, "upsert", cmssync.OutcomeCreated, 20*time.Millisecond)
	sm.RecordOperation(ctx, cms.EntityProduct, "upsert", cmssync.OutcomeCreated, 30*time.Millisecond)
	sm.RecordOperation(ctx, cms.EntityVariant, "delete", cmssync.OutcomeError, time.Second)

	rm := collect(t, reader)
	points := sumPoints(t, rm, "cmssync_operations_total")
	assert.Equal(t, int64(2), valueFor(points,
		telemetry.AttrEntity.String("product"),
		telemetry.AttrOperation.String("upsert"),
		telemetry.AttrOutcome.String("created"),
	))
	assert.Equal(t, int64(1), valueFor(points,
		telemetry.AttrEntity.String("variant"),
		telemetry.AttrOperation.String("delete"),
		telemetry.AttrOutcome.String("error"),
	))

	_, ok := findMetric(rm, "cmssync_operation_duration_seconds")
	assert.True(t, ok)
}

func TestSyncMetrics_ObserveDispatch(t *testing.T) {
	mp, reader := newTestMeterProvider(t)
	ctx := context.Background()

	sm, err := telemetry.NewSyncMetrics(mp)
	require.NoError(t, err)

	sm.ObserveDispatch(ctx, "product.updated", "cmssync.product", nil, time.Millisecond)
	sm.ObserveDispatch(ctx, "product.updated", "cmssync.product", errors.New("cms down"), time.Millisecond)
	sm.ObserveDispatch(ctx, "product.updated", "cmssync.product", errors.New("cms down"), time.Millisecond)
	sm.ObserveDuplicate(ctx, "product.updated", "cmssync.product")

	points := sumPoints(t, collect(t, reader), "cmssync_events_total")
	assert.Equal(t, int64(1), valueFor(points,
		telemetry.AttrEventType.String("product.updated"),
		telemetry.AttrHandler.String("cmssync.product"),
		telemetry.AttrOutcome.String("ok"),
	))
	assert.Equal(t, int64(2), valueFor(points,
		telemetry.AttrEventType.String("product.updated"),
		telemetry.AttrHandler.String("cmssync.product"),
		telemetry.AttrOutcome.String("error"),
	))
	assert.Equal(t, int64(1), valueFor(points,
		telemetry.AttrEventType.String("product.updated"),
		telemetry.AttrHandler.String("cmssync.product"),
		telemetry.AttrOutcome.String("duplicate"),
	))
}
