/*
Package worker provides a bounded priority scheduler executing jobs on a fixed set of worker goroutines and publishing their results through a signal.

# Overview

The Scheduler combines:
- Three priority levels (high, normal, low) served in strict order
- Most-recently-enqueued-first order within a level
- Explicit notification, enqueued jobs stay parked until Notify
- Batch tagging so stale results can be filtered after a cancellation
- A dedicated dispatcher goroutine delivering results in batches
- Panic recovery and a configurable failure policy

# Core Components

## Scheduler

Owns the queues, the workers and the dispatcher:
- Enqueue routes jobs by priority and optionally invalidates earlier work
- Notify wakes the workers once jobs are queued
- Cancel drops every queued job and advances the batch
- Close stops the workers, flushes the pending results and returns

## Worker

One goroutine looping over wait, fetch, execute and publish. A worker never
holds a lock while a job computes.

## Dispatcher

Drains the whole result buffer at once, drops stale results when the last
Enqueue asked for invalidation, and emits the rest on the Completed signal
with SafeEmit, so a failing listener never stops the others.

# Concurrency Safety

Lock ordering: the pool lock is always taken before the queue lock. The
results lock is never held with the queue lock. Listeners run on the
dispatcher goroutine and must not call Close.

# Usage Examples

Basic usage:

	scheduler, err := worker.NewScheduler(&worker.SchedulerConfig{
		PoolSize: 4,
		Logger:   logger,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer scheduler.Close()

	scheduler.Completed().Connect(func(results []types.Result) {
		for _, r := range results {
			fmt.Println(r.Job.ID(), r.Err)
		}
	})

	job := worker.NewJob(func(ctx context.Context) error {
		// Execute work
		return nil
	}, types.PriorityHigh)

	if _, err := scheduler.Enqueue([]types.Job{job}, false); err != nil {
		log.Fatal(err)
	}
	scheduler.Notify()

Replacing outdated work:

	// queued jobs are dropped and in-flight results are never published
	scheduler.Enqueue(fresh, true)
	scheduler.Notify()

Retrieve statistics:

	stats := scheduler.Stats()
	fmt.Printf("Active Workers: %d/%d\n", stats.ActiveWorkers, stats.PoolSize)
	fmt.Printf("Published: %d, Discarded: %d\n", stats.TotalPublished, stats.TotalDiscarded)
*/
package worker
