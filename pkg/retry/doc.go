// Package retry wraps scheduler jobs so that a failing Compute is attempted again
// after a backoff delay, inside the same worker slot.
//
// Key Features:
//
// 1. Exponential backoff with an upper bound and optional jitter
//
// 2. Configurable retry conditions, cancellation and panics are never retried
//
// 3. Cooperative cancellation: the wait between attempts stops as soon as the
// scheduler context is cancelled
//
// Basic usage example:
//
//	policy := retry.DefaultPolicy()
//	policy.MaxAttempts = 5
//
//	job := retry.NewJob(worker.NewJob(fetchThumbnail, types.PriorityHigh), policy,
//		retry.WithLogger(logger))
//
//	scheduler.Enqueue([]types.Job{job}, false)
//	scheduler.Notify()
//
// A retried job keeps the ID and priority of the job it wraps, so listeners of the
// Completed signal see it like any other job.
package retry
