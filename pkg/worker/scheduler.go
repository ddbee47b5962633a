package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/jzx17/jobpool/pkg/logging"
	"github.com/jzx17/jobpool/pkg/signal"
	"github.com/jzx17/jobpool/pkg/types"
)

const (
	// MinPoolSize is the minimum number of workers of a scheduler
	MinPoolSize = 3

	completedSignalName = "onJobsCompleted"
)

// SchedulerConfig contains configuration for the scheduler
type SchedulerConfig struct {
	// PoolSize is the number of workers, raised to MinPoolSize when lower
	PoolSize int

	// Logger receives the scheduler diagnostics (optional, defaults to no-op)
	Logger *zap.Logger

	// Clock for timing job execution (optional, defaults to real clock)
	Clock types.Clock

	// FailurePolicy decides whether failed jobs are published
	FailurePolicy types.FailurePolicy

	// ErrorHandler is notified of every job failure (optional)
	ErrorHandler types.ErrorHandler

	// Meter records scheduler metrics (optional)
	Meter metric.Meter
}

// DefaultSchedulerConfig returns default configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PoolSize:      MinPoolSize,
		Clock:         types.NewRealClock(),
		FailurePolicy: types.PublishFailures,
	}
}

// Scheduler is a bounded pool of workers executing prioritized jobs. Results
// are handed to a dedicated dispatcher goroutine which publishes them on the
// Completed signal.
//
// Lock ordering: poolMu is always acquired before jobsMu. resultsMu is never
// held together with jobsMu, and no lock is held while a job computes.
type Scheduler struct {
	config  *SchedulerConfig
	size    int
	logger  *zap.SugaredLogger
	clock   types.Clock
	metrics *schedulerMetrics

	// ctx is handed to Compute and cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	// Pool state, poolMu is the lock of the workers' wait condition
	poolMu        sync.Mutex
	waiter        *sync.Cond
	poolRunning   bool
	jobsAvailable bool

	// Priority queues, batch is only written while holding jobsMu
	jobsMu sync.Mutex
	queues jobQueues
	batch  atomic.Uint64

	// Results, resultsMu is the lock of the dispatcher's wait condition
	resultsMu       sync.Mutex
	resWaiter       *sync.Cond
	resultsHandling bool
	results         []types.Result
	invalidateOld   atomic.Bool

	threadsMu sync.Mutex
	workers   []*Worker
	workersWG sync.WaitGroup

	dispatcherMu   sync.Mutex
	dispatcherDone chan struct{}

	completed *signal.Signal[[]types.Result]
	closeOnce sync.Once

	// statistics
	totalEnqueued  int64
	totalSkipped   int64
	totalExecuted  int64
	totalFailed    int64
	totalPublished int64
	totalDiscarded int64
}

// NewScheduler creates a scheduler and starts its workers and dispatcher.
// All goroutines block until work is enqueued and notified.
func NewScheduler(config *SchedulerConfig) (*Scheduler, error) {
	if config == nil {
		config = DefaultSchedulerConfig()
	}

	if config.PoolSize < 0 {
		return nil, fmt.Errorf("%w: pool size must not be negative, got %d", types.ErrInvalidConfig, config.PoolSize)
	}
	if config.FailurePolicy != types.PublishFailures && config.FailurePolicy != types.DiscardFailures {
		return nil, fmt.Errorf("%w: unknown failure policy %d", types.ErrInvalidConfig, config.FailurePolicy)
	}

	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	size := config.PoolSize
	if size < MinPoolSize {
		size = MinPoolSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		config:    config,
		size:      size,
		logger:    logging.Prefixed(config.Logger, "threadpool", "pool"),
		clock:     config.Clock,
		metrics:   newSchedulerMetrics(config.Meter),
		ctx:       ctx,
		cancel:    cancel,
		completed: signal.New[[]types.Result](config.Logger),
	}
	s.waiter = sync.NewCond(&s.poolMu)
	s.resWaiter = sync.NewCond(&s.resultsMu)

	s.start()

	return s, nil
}

// start launches the dispatcher first so that no result can be produced
// before someone is there to consume it
func (s *Scheduler) start() {
	s.resultsMu.Lock()
	s.resultsHandling = true
	s.resultsMu.Unlock()

	s.dispatcherMu.Lock()
	s.dispatcherDone = make(chan struct{})
	go s.runDispatcher(s.dispatcherDone)
	s.dispatcherMu.Unlock()

	s.poolMu.Lock()
	s.poolRunning = true
	s.poolMu.Unlock()

	s.threadsMu.Lock()
	defer s.threadsMu.Unlock()

	s.workers = make([]*Worker, s.size)
	for i := range s.workers {
		w := newWorker(i)
		s.workers[i] = w
		s.workersWG.Add(1)
		go s.runWorker(w)
	}
}

// Completed returns the signal emitted with every batch of published results
func (s *Scheduler) Completed() *signal.Signal[[]types.Result] {
	return s.completed
}

// Enqueue routes each job into the queue matching its priority, tagged with
// the current batch. Workers are not woken: call Notify once the jobs are in.
//
// With invalidate set, every queued job is dropped first and the batch is
// advanced, so in-flight jobs from earlier calls are not published when they
// complete. Without it, earlier work survives and is published.
//
// Nil jobs are skipped with a warning. It returns the number of accepted jobs.
func (s *Scheduler) Enqueue(jobs []types.Job, invalidate bool) (int, error) {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	if !s.poolRunning {
		return 0, types.ErrSchedulerClosed
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	// Advancing the batch here, and not only in Cancel, is what marks the
	// in-flight work of earlier calls as stale.
	if invalidate {
		dropped := s.queues.clear()
		next := s.batch.Add(1)
		s.jobsAvailable = false
		s.logger.Debugw("Invalidating previous jobs", "dropped", dropped, "batch", next)
	}
	s.invalidateOld.Store(invalidate)

	batch := s.batch.Load()
	accepted := 0
	for id, job := range jobs {
		if job == nil {
			s.logger.Warnw("Discarding invalid null job", "index", id, "error", types.ErrNilJob)
			atomic.AddInt64(&s.totalSkipped, 1)
			continue
		}

		priority := job.Priority()
		if !priority.IsValid() {
			s.logger.Warnw("Could not find adequate queue for job, assuming low priority",
				"job", job.ID(), "priority", int(priority))
			priority = types.PriorityLow
		}

		s.queues.push(priority, queuedJob{job: job, batch: batch})
		s.metrics.recordEnqueued(context.Background(), priority)
		accepted++
	}

	atomic.AddInt64(&s.totalEnqueued, int64(accepted))
	return accepted, nil
}

// Notify makes the enqueued jobs visible to the workers and wakes them.
// Without queued jobs this is a no-op.
func (s *Scheduler) Notify() {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	if !s.poolRunning {
		s.logger.Warn("Tried to start jobs processing on a terminated pool")
		return
	}

	s.jobsMu.Lock()
	empty := s.queues.empty()
	s.jobsMu.Unlock()

	if empty {
		s.logger.Warn("Tried to start jobs processing but none are defined")
		return
	}

	s.jobsAvailable = true
	s.waiter.Broadcast()
}

// Cancel drops every queued job and advances the batch: jobs computing right
// now still complete, but their results are stale and will not be published
// if the last Enqueue asked for invalidation. It returns the number of
// dropped jobs.
func (s *Scheduler) Cancel() int {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	s.jobsAvailable = false

	count := s.queues.clear()
	next := s.batch.Add(1)
	s.logger.Debugw("Clearing remaining job(s)", "count", count, "batch", next)

	return count
}

// Close stops the scheduler. Workers finish the job they are computing and
// exit, queued jobs are abandoned, then the dispatcher publishes what is left
// in the results buffer and exits. Close must not be called from a listener
// of the Completed signal. It is idempotent.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		s.poolMu.Lock()
		if !s.poolRunning {
			s.poolMu.Unlock()
			return
		}
		s.poolRunning = false
		s.waiter.Broadcast()
		s.poolMu.Unlock()

		s.cancel()

		// The registry lock is not held while joining: a job winding down on
		// the cancelled context may still call Stats.
		s.threadsMu.Lock()
		count := len(s.workers)
		s.threadsMu.Unlock()

		s.workersWG.Wait()
		s.logger.Debugw("Joined worker threads", "count", count)

		// Workers are gone, nothing can be added to the results anymore.
		s.resultsMu.Lock()
		s.resultsHandling = false
		s.resWaiter.Broadcast()
		s.resultsMu.Unlock()

		s.dispatcherMu.Lock()
		<-s.dispatcherDone
		s.dispatcherMu.Unlock()

		s.logger.Debug("Thread pool terminated")
	})

	return nil
}

// Size returns the number of workers
func (s *Scheduler) Size() int {
	return s.size
}

// Batch returns the current batch. It is advanced by Cancel and by every
// Enqueue called with invalidate set.
func (s *Scheduler) Batch() uint64 {
	return s.batch.Load()
}

// Pending returns the number of queued jobs not yet fetched by a worker
func (s *Scheduler) Pending() int {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	return s.queues.len()
}

// IsRunning checks if the scheduler accepts work
func (s *Scheduler) IsRunning() bool {
	s.poolMu.Lock()
	defer s.poolMu.Unlock()

	return s.poolRunning
}

// SchedulerStats is a snapshot of the scheduler statistics
type SchedulerStats struct {
	// PoolSize is the number of workers
	PoolSize int

	// ActiveWorkers is the number of workers computing a job
	ActiveWorkers int

	// Queued is the number of jobs waiting in the queues
	Queued int

	// QueuedByPriority splits Queued by priority
	QueuedByPriority map[types.Priority]int

	// Batch is the current batch
	Batch uint64

	// Counters since creation
	TotalEnqueued  int64
	TotalSkipped   int64
	TotalExecuted  int64
	TotalFailed    int64
	TotalPublished int64
	TotalDiscarded int64

	// Workers holds the per-worker statistics
	Workers []WorkerStats
}

// Stats returns a snapshot of the scheduler statistics
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		PoolSize:         s.size,
		QueuedByPriority: make(map[types.Priority]int, len(types.Priorities)),
		TotalEnqueued:    atomic.LoadInt64(&s.totalEnqueued),
		TotalSkipped:     atomic.LoadInt64(&s.totalSkipped),
		TotalExecuted:    atomic.LoadInt64(&s.totalExecuted),
		TotalFailed:      atomic.LoadInt64(&s.totalFailed),
		TotalPublished:   atomic.LoadInt64(&s.totalPublished),
		TotalDiscarded:   atomic.LoadInt64(&s.totalDiscarded),
	}

	s.jobsMu.Lock()
	for _, p := range types.Priorities {
		stats.QueuedByPriority[p] = s.queues.lenOf(p)
	}
	stats.Queued = s.queues.len()
	stats.Batch = s.batch.Load()
	s.jobsMu.Unlock()

	s.threadsMu.Lock()
	workers := s.workers
	s.threadsMu.Unlock()

	stats.Workers = make([]WorkerStats, 0, len(workers))
	for _, w := range workers {
		ws := w.Stats()
		if ws.IsActive() {
			stats.ActiveWorkers++
		}
		stats.Workers = append(stats.Workers, ws)
	}

	return stats
}

var _ types.JobScheduler = (*Scheduler)(nil)
