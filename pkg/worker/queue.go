package worker

import (
	"github.com/jzx17/jobpool/pkg/types"
)

// queuedJob is a job tagged with the batch it was enqueued under
type queuedJob struct {
	job   types.Job
	batch uint64
}

// jobQueues holds one sequence per priority level. Jobs are appended to the
// tail and also served from the tail, so the most recently enqueued job of a
// level runs first. Not safe for concurrent use.
type jobQueues struct {
	stacks [3][]queuedJob
}

func (q *jobQueues) push(p types.Priority, item queuedJob) {
	if !p.IsValid() {
		p = types.PriorityLow
	}
	q.stacks[p] = append(q.stacks[p], item)
}

// pop removes the tail of the highest priority non-empty level
func (q *jobQueues) pop() (queuedJob, bool) {
	for _, p := range types.Priorities {
		stack := q.stacks[p]
		n := len(stack)
		if n == 0 {
			continue
		}

		item := stack[n-1]
		stack[n-1] = queuedJob{}
		q.stacks[p] = stack[:n-1]
		return item, true
	}
	return queuedJob{}, false
}

// clear drops every queued job and returns how many were dropped
func (q *jobQueues) clear() int {
	count := q.len()
	for p := range q.stacks {
		q.stacks[p] = nil
	}
	return count
}

func (q *jobQueues) len() int {
	return len(q.stacks[types.PriorityHigh]) + len(q.stacks[types.PriorityNormal]) + len(q.stacks[types.PriorityLow])
}

func (q *jobQueues) lenOf(p types.Priority) int {
	if !p.IsValid() {
		return 0
	}
	return len(q.stacks[p])
}

func (q *jobQueues) empty() bool {
	return q.len() == 0
}
