package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWorker(t *testing.T) {
	worker := newWorker(1)

	assert.Equal(t, 1, worker.ID())
	assert.Equal(t, WorkerStateWaiting, worker.State())
}

func TestWorkerState(t *testing.T) {
	worker := newWorker(1)

	worker.setState(WorkerStateExecuting)
	assert.Equal(t, WorkerStateExecuting, worker.State())

	assert.Equal(t, "waiting", WorkerStateWaiting.String())
	assert.Equal(t, "fetching", WorkerStateFetching.String())
	assert.Equal(t, "executing", WorkerStateExecuting.String())
	assert.Equal(t, "publishing", WorkerStatePublishing.String())
	assert.Equal(t, "stopped", WorkerStateStopped.String())
	assert.Equal(t, "unknown", WorkerState(999).String())
}

func TestWorker_Stats(t *testing.T) {
	worker := newWorker(2)

	stats := worker.Stats()
	assert.Equal(t, 2, stats.ID)
	assert.True(t, stats.IsIdle())
	assert.False(t, stats.IsActive())
	assert.True(t, stats.LastTaskTime.IsZero())
	assert.Equal(t, 0.0, stats.GetSuccessRate())
	assert.Equal(t, 0.0, stats.GetErrorRate())

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	worker.record(start, false)
	worker.record(start, false)
	worker.record(start, false)
	worker.record(start.Add(time.Second), true)

	worker.setState(WorkerStateExecuting)
	stats = worker.Stats()
	assert.Equal(t, int64(3), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.TotalFailed)
	assert.True(t, stats.LastTaskTime.Equal(start.Add(time.Second)))
	assert.True(t, stats.IsActive())
	assert.InDelta(t, 0.75, stats.GetSuccessRate(), 1e-9)
	assert.InDelta(t, 0.25, stats.GetErrorRate(), 1e-9)
}
