package worker

import (
	"context"
	"errors"
	"sync/atomic"

	ierrors "github.com/jzx17/jobpool/internal/errors"
	"github.com/jzx17/jobpool/pkg/types"
)

// runWorker is the loop of one worker goroutine: wait for work, fetch the
// highest priority job, compute it without holding any lock, publish the
// result, and wait again. On stop the job already fetched is completed.
func (s *Scheduler) runWorker(w *Worker) {
	defer s.workersWG.Done()
	defer w.setState(WorkerStateStopped)

	s.logger.Debugw("Creating thread for thread pool", "worker", w.id)

	s.poolMu.Lock()
	for s.poolRunning {
		w.setState(WorkerStateWaiting)
		for s.poolRunning && !s.jobsAvailable {
			s.waiter.Wait()
		}
		if !s.poolRunning {
			break
		}

		w.setState(WorkerStateFetching)
		item, ok, remaining := s.fetch()

		// Compute without the pool lock so other workers can fetch and
		// callers can enqueue or cancel meanwhile.
		s.poolMu.Unlock()

		if ok {
			s.logger.Debugw("Processing job",
				"job", item.job.ID(), "batch", item.batch, "worker", w.id, "remaining", remaining)
			s.execute(w, item)
		}

		s.poolMu.Lock()
	}
	s.poolMu.Unlock()

	s.logger.Debugw("Terminating thread for thread pool", "worker", w.id)
}

// fetch pops the next job and refreshes the availability flag. The caller
// holds poolMu.
func (s *Scheduler) fetch() (queuedJob, bool, int) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	item, ok := s.queues.pop()
	remaining := s.queues.len()
	s.jobsAvailable = remaining > 0

	return item, ok, remaining
}

// execute computes a job, recovering panics, and hands the result over to
// the dispatcher
func (s *Scheduler) execute(w *Worker, item queuedJob) {
	w.setState(WorkerStateExecuting)

	start := s.clock.Now()
	err := ierrors.ProtectErr(func() error {
		return item.job.Compute(s.ctx)
	})
	elapsed := s.clock.Since(start)

	failed := err != nil
	w.record(start, failed)
	atomic.AddInt64(&s.totalExecuted, 1)
	s.metrics.recordExecution(context.Background(), item.job.Priority(), elapsed, failed)

	result := types.Result{
		Job:      item.job,
		Batch:    item.batch,
		WorkerID: w.id,
		Duration: elapsed,
	}

	if failed {
		atomic.AddInt64(&s.totalFailed, 1)
		jobErr := types.NewJobError(item.job.ID(), w.id, item.batch, err)
		if ierrors.IsPanic(err) {
			jobErr.WithContext("panic", true)
		}
		result.Err = jobErr
		s.handleFailure(jobErr)

		if s.config.FailurePolicy == types.DiscardFailures {
			return
		}
	}

	w.setState(WorkerStatePublishing)

	s.resultsMu.Lock()
	s.results = append(s.results, result)
	s.resWaiter.Signal()
	s.resultsMu.Unlock()
}

// handleFailure logs a job failure and forwards it to the error handler
func (s *Scheduler) handleFailure(jobErr *types.JobError) {
	fields := []interface{}{
		"job", jobErr.JobID,
		"worker", jobErr.WorkerID,
		"batch", jobErr.Batch,
		"error", jobErr.Cause,
	}
	var pe *ierrors.PanicError
	if errors.As(jobErr.Cause, &pe) {
		fields = append(fields, "stack", string(pe.Stack))
	}
	s.logger.Errorw("Job failed", fields...)

	handler := s.config.ErrorHandler
	if handler == nil {
		return
	}

	err := ierrors.ProtectErr(func() error { return handler(jobErr) })
	if err != nil {
		s.logger.Warnw("Error handler reported an error", "job", jobErr.JobID, "error", err)
	}
}
