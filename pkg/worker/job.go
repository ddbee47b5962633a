package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jzx17/jobpool/pkg/types"
)

// JobFunc is the work performed by a BasicJob
type JobFunc func(ctx context.Context) error

// BasicJob is the basic implementation of the Job interface
type BasicJob struct {
	id       string
	priority types.Priority
	fn       JobFunc
}

// NewJob creates a job with a random ID
func NewJob(fn JobFunc, priority types.Priority) *BasicJob {
	return NewJobWithID(uuid.NewString(), fn, priority)
}

// NewNormalJob creates a normal priority job with a random ID
func NewNormalJob(fn JobFunc) *BasicJob {
	return NewJob(fn, types.PriorityNormal)
}

// NewJobWithID creates a job with a custom ID
func NewJobWithID(id string, fn JobFunc, priority types.Priority) *BasicJob {
	return &BasicJob{
		id:       id,
		priority: priority,
		fn:       fn,
	}
}

// ID returns the job ID
func (j *BasicJob) ID() string {
	return j.id
}

// Priority returns the job priority
func (j *BasicJob) Priority() types.Priority {
	return j.priority
}

// Compute runs the job function
func (j *BasicJob) Compute(ctx context.Context) error {
	if j.fn == nil {
		return fmt.Errorf("job %s has no compute function", j.id)
	}
	return j.fn(ctx)
}

// String returns a short description used in logs
func (j *BasicJob) String() string {
	return fmt.Sprintf("%s(%s)", j.id, j.priority)
}
