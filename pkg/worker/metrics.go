package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jzx17/jobpool/pkg/types"
)

// meterName is the instrumentation scope name for scheduler metrics
const meterName = "github.com/jzx17/jobpool"

// schedulerMetrics holds the OTel instruments of a scheduler.
//
// Instruments:
//   - jobpool.job.executions (Int64Counter): computed jobs, by priority and status
//   - jobpool.job.duration (Float64Histogram): Compute time in seconds, by priority and status
//   - jobpool.jobs.enqueued (Int64Counter): jobs accepted by Enqueue, by priority
//   - jobpool.results.published (Int64Counter): results delivered to listeners
//   - jobpool.results.discarded (Int64Counter): stale results dropped by the dispatcher
type schedulerMetrics struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
	enqueued   metric.Int64Counter
	published  metric.Int64Counter
	discarded  metric.Int64Counter
}

// newSchedulerMetrics creates the instruments on meter, or noop instruments
// when meter is nil. On error the OTel API hands back noop instruments.
func newSchedulerMetrics(meter metric.Meter) *schedulerMetrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	m := &schedulerMetrics{}
	m.executions, _ = meter.Int64Counter(
		"jobpool.job.executions",
		metric.WithDescription("Total number of computed jobs"),
		metric.WithUnit("{execution}"),
	)
	m.duration, _ = meter.Float64Histogram(
		"jobpool.job.duration",
		metric.WithDescription("Duration of job computation in seconds"),
		metric.WithUnit("s"),
	)
	m.enqueued, _ = meter.Int64Counter(
		"jobpool.jobs.enqueued",
		metric.WithDescription("Total number of jobs accepted by the scheduler"),
		metric.WithUnit("{job}"),
	)
	m.published, _ = meter.Int64Counter(
		"jobpool.results.published",
		metric.WithDescription("Total number of results delivered to listeners"),
		metric.WithUnit("{result}"),
	)
	m.discarded, _ = meter.Int64Counter(
		"jobpool.results.discarded",
		metric.WithDescription("Total number of stale results dropped before publication"),
		metric.WithUnit("{result}"),
	)
	return m
}

func (m *schedulerMetrics) recordExecution(ctx context.Context, p types.Priority, elapsed time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("priority", p.String()),
		attribute.String("status", status),
	)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.executions.Add(ctx, 1, attrs)
}

func (m *schedulerMetrics) recordEnqueued(ctx context.Context, p types.Priority) {
	m.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("priority", p.String())))
}

func (m *schedulerMetrics) recordPublished(ctx context.Context, n int) {
	if n > 0 {
		m.published.Add(ctx, int64(n))
	}
}

func (m *schedulerMetrics) recordDiscarded(ctx context.Context, n int) {
	if n > 0 {
		m.discarded.Add(ctx, int64(n))
	}
}
