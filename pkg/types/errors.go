// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrSchedulerClosed indicates the scheduler no longer accepts work
	ErrSchedulerClosed = errors.New("scheduler is closed")

	// ErrNilJob indicates a nil job was submitted
	ErrNilJob = errors.New("nil job")

	// ErrInvalidPriority indicates a priority outside the supported set
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidConfig indicates an invalid scheduler configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// JobError represents the failure of a job computed by a worker
type JobError struct {
	// JobID is the ID of the failed job
	JobID string

	// WorkerID is the worker that computed the job
	WorkerID int

	// Batch is the batch the job belonged to
	Batch uint64

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed in worker %d (batch %d): %v", e.JobID, e.WorkerID, e.Batch, e.Cause)
}

// Unwrap returns the underlying error
func (e *JobError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *JobError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewJobError creates a new job error
func NewJobError(jobID string, workerID int, batch uint64, cause error) *JobError {
	return &JobError{
		JobID:    jobID,
		WorkerID: workerID,
		Batch:    batch,
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *JobError) WithContext(key string, value interface{}) *JobError {
	e.Context[key] = value
	return e
}
