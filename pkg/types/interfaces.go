// Package types defines core interfaces and types for the job scheduler
package types

import (
	"context"
	"strings"
	"time"
)

// Priority defines the scheduling priority of a job
type Priority int

const (
	// PriorityLow is served only when no high or normal job is queued
	PriorityLow Priority = iota
	// PriorityNormal is the default priority
	PriorityNormal
	// PriorityHigh always preempts normal and low jobs at the next fetch
	PriorityHigh
)

// Priorities lists the supported priorities from highest to lowest
var Priorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

// String returns the string representation of Priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// IsValid reports whether p belongs to the closed priority set
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// ParsePriority converts a priority name (case insensitive) to a Priority
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, ErrInvalidPriority
	}
}

// Job defines a unit of work executed by the scheduler.
//
// The priority is fixed at construction and read without any locking,
// implementations must not change it afterwards.
type Job interface {
	// ID returns the job name used in diagnostics
	ID() string

	// Priority returns the job priority
	Priority() Priority

	// Compute performs the work synchronously. It must not block
	// indefinitely: the scheduler cannot preempt a running job.
	Compute(ctx context.Context) error
}

// Result describes a job that went through a worker
type Result struct {
	// Job is the computed job
	Job Job

	// Batch is the batch the job was enqueued under
	Batch uint64

	// WorkerID identifies the worker that computed the job
	WorkerID int

	// Err is the error returned by Compute (or recovered from a panic)
	Err error

	// Duration is the execution time of Compute
	Duration time.Duration
}

// Failed reports whether the job completed with an error
func (r Result) Failed() bool {
	return r.Err != nil
}

// Jobs strips the execution metadata and returns the computed jobs
func Jobs(results []Result) []Job {
	jobs := make([]Job, 0, len(results))
	for _, r := range results {
		jobs = append(jobs, r.Job)
	}
	return jobs
}

// FailurePolicy defines what happens to the result of a failed job
type FailurePolicy int

const (
	// PublishFailures publishes failed jobs as completed-with-error results
	PublishFailures FailurePolicy = iota
	// DiscardFailures logs failed jobs and drops their results
	DiscardFailures
)

// String returns the string representation of FailurePolicy
func (fp FailurePolicy) String() string {
	switch fp {
	case PublishFailures:
		return "PublishFailures"
	case DiscardFailures:
		return "DiscardFailures"
	default:
		return "Unknown"
	}
}

// ErrorHandler is notified of every job failure. The returned error is
// logged when non-nil and otherwise ignored.
type ErrorHandler func(error) error

// JobScheduler defines the scheduler interface
type JobScheduler interface {
	// Enqueue routes jobs into the priority queues without waking workers
	Enqueue(jobs []Job, invalidate bool) (int, error)

	// Notify makes enqueued jobs visible to the workers
	Notify()

	// Cancel drops every queued job and invalidates in-flight ones
	Cancel() int

	// Close stops the workers and the result dispatcher
	Close() error

	// Size returns the number of workers
	Size() int
}
