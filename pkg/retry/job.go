package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jzx17/jobpool/pkg/logging"
	"github.com/jzx17/jobpool/pkg/types"
)

// ErrMaxAttemptsReached is returned when every attempt of a job failed
var ErrMaxAttemptsReached = errors.New("max retry attempts reached")

// Job decorates a job with retries. It keeps the ID and priority of the
// wrapped job.
type Job struct {
	inner  types.Job
	policy *Policy
	clock  types.Clock
	logger *zap.SugaredLogger

	attempts int64
}

// Option configures a Job
type Option func(*Job)

// WithClock sets the clock used to wait between attempts
func WithClock(clock types.Clock) Option {
	return func(j *Job) {
		j.clock = clock
	}
}

// WithLogger sets the logger reporting retries
func WithLogger(logger *zap.Logger) Option {
	return func(j *Job) {
		j.logger = logging.Prefixed(logger, "retry", "pool")
	}
}

// NewJob wraps inner. A nil policy means DefaultPolicy.
func NewJob(inner types.Job, policy *Policy, opts ...Option) *Job {
	if policy == nil {
		policy = DefaultPolicy()
	}

	j := &Job{
		inner:  inner,
		policy: policy,
		clock:  types.NewRealClock(),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ID returns the wrapped job ID
func (j *Job) ID() string {
	return j.inner.ID()
}

// Priority returns the wrapped job priority
func (j *Job) Priority() types.Priority {
	return j.inner.Priority()
}

// Unwrap returns the wrapped job
func (j *Job) Unwrap() types.Job {
	return j.inner
}

// Attempts returns the number of Compute calls made by the last run
func (j *Job) Attempts() int {
	return int(atomic.LoadInt64(&j.attempts))
}

// Compute runs the wrapped job until it succeeds, the policy gives up or ctx
// is done. Panics of the wrapped job are not recovered here.
func (j *Job) Compute(ctx context.Context) error {
	atomic.StoreInt64(&j.attempts, 0)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		atomic.StoreInt64(&j.attempts, int64(attempt))
		err := j.inner.Compute(ctx)
		if err == nil {
			if attempt > 1 {
				j.logger.Debugw("Job succeeded after retry", "job", j.ID(), "attempts", attempt)
			}
			return nil
		}

		if !j.policy.ShouldRetry(err, attempt) {
			if attempt >= j.policy.MaxAttempts && attempt > 1 {
				return fmt.Errorf("%w (%d): %w", ErrMaxAttemptsReached, attempt, err)
			}
			return err
		}

		delay := j.policy.NextDelay(attempt)
		j.logger.Debugw("Retrying job", "job", j.ID(), "attempt", attempt, "delay", delay, "error", err)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-j.clock.After(delay):
			}
		}
	}
}

var _ types.Job = (*Job)(nil)
