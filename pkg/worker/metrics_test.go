package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jzx17/jobpool/internal/testutils"
	"github.com/jzx17/jobpool/pkg/types"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue sums the data points of an int64 counter matching attrs
func counterValue(rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}

	var total int64
	for _, dp := range sum.DataPoints {
		matches := true
		for _, kv := range attrs {
			v, found := dp.Attributes.Value(kv.Key)
			if !found || v.Emit() != kv.Value.Emit() {
				matches = false
				break
			}
		}
		if matches {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_NilMeter(t *testing.T) {
	m := newSchedulerMetrics(nil)

	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.recordEnqueued(ctx, types.PriorityHigh)
		m.recordExecution(ctx, types.PriorityHigh, time.Millisecond, false)
		m.recordPublished(ctx, 1)
		m.recordDiscarded(ctx, 1)
	})
}

func TestMetrics_SkipsEmptyCounts(t *testing.T) {
	reader, mp := setupTestMeter()
	m := newSchedulerMetrics(mp.Meter("test"))

	m.recordPublished(context.Background(), 0)
	m.recordDiscarded(context.Background(), 0)

	rm := collectMetrics(t, reader)
	assert.Nil(t, findMetric(rm, "jobpool.results.published"))
	assert.Nil(t, findMetric(rm, "jobpool.results.discarded"))
}

func TestMetrics_Scheduler(t *testing.T) {
	reader, mp := setupTestMeter()
	s := newTestScheduler(t, &SchedulerConfig{Meter: mp.Meter("test")})
	c := collect(s)

	_, err := s.Enqueue([]types.Job{
		noopJob("a", types.PriorityHigh),
		noopJob("b", types.PriorityLow),
		NewJobWithID("c", func(ctx context.Context) error { return errors.New("boom") }, types.PriorityLow),
	}, false)
	require.NoError(t, err)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(3), counterValue(rm, "jobpool.jobs.enqueued"))
	assert.Equal(t, int64(2), counterValue(rm, "jobpool.jobs.enqueued", attribute.String("priority", "low")))

	s.Notify()
	testutils.Eventually(t, func() bool { return c.Count() == 3 })

	rm = collectMetrics(t, reader)
	assert.Equal(t, int64(3), counterValue(rm, "jobpool.job.executions"))
	assert.Equal(t, int64(1), counterValue(rm, "jobpool.job.executions", attribute.String("status", "error")))
	assert.Equal(t, int64(3), counterValue(rm, "jobpool.results.published"))

	metric := findMetric(rm, "jobpool.job.duration")
	require.NotNil(t, metric)
	hist, ok := metric.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestMetrics_Discarded(t *testing.T) {
	reader, mp := setupTestMeter()
	s := newTestScheduler(t, &SchedulerConfig{Meter: mp.Meter("test")})

	gates := occupy(t, s, true)
	s.Cancel()
	openAll(gates)

	testutils.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			return false
		}
		return counterValue(rm, "jobpool.results.discarded") == 3
	})
	assert.Equal(t, int64(0), counterValue(collectMetrics(t, reader), "jobpool.results.published"))
}
