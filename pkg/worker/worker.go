package worker

import (
	"sync/atomic"
	"time"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateWaiting represents a worker blocked until work is available
	WorkerStateWaiting WorkerState = iota
	// WorkerStateFetching represents a worker popping a job from the queues
	WorkerStateFetching
	// WorkerStateExecuting represents a worker running a job with no lock held
	WorkerStateExecuting
	// WorkerStatePublishing represents a worker pushing a result to the dispatcher
	WorkerStatePublishing
	// WorkerStateStopped represents a terminated worker
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateWaiting:
		return "waiting"
	case WorkerStateFetching:
		return "fetching"
	case WorkerStateExecuting:
		return "executing"
	case WorkerStatePublishing:
		return "publishing"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker tracks the state and statistics of one scheduler goroutine
type Worker struct {
	id    int
	state int32 // atomic state

	// statistics
	totalProcessed int64
	totalFailed    int64
	lastTaskTime   int64 // Unix nanosecond timestamp
}

func newWorker(id int) *Worker {
	return &Worker{
		id:    id,
		state: int32(WorkerStateWaiting),
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

func (w *Worker) setState(state WorkerState) {
	atomic.StoreInt32(&w.state, int32(state))
}

// record accounts for one computed job started at start
func (w *Worker) record(start time.Time, failed bool) {
	atomic.StoreInt64(&w.lastTaskTime, start.UnixNano())
	if failed {
		atomic.AddInt64(&w.totalFailed, 1)
	} else {
		atomic.AddInt64(&w.totalProcessed, 1)
	}
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	stats := WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
	}
	if last := atomic.LoadInt64(&w.lastTaskTime); last != 0 {
		stats.LastTaskTime = time.Unix(0, last)
	}
	return stats
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	LastTaskTime   time.Time
}

// IsActive checks if Worker is running a job
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateExecuting
}

// IsIdle checks if Worker is waiting for work
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateWaiting
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalProcessed) / float64(total)
}

// GetErrorRate gets the error rate
func (ws WorkerStats) GetErrorRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalFailed) / float64(total)
}
