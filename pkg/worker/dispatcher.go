package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jzx17/jobpool/pkg/types"
)

// runDispatcher waits for results, drains the whole buffer at once and
// publishes it without holding resultsMu, so slow listeners never hold up
// the workers. Once stopped it keeps draining until the buffer is empty.
func (s *Scheduler) runDispatcher(done chan struct{}) {
	defer close(done)

	s.resultsMu.Lock()
	for {
		for s.resultsHandling && len(s.results) == 0 {
			s.resWaiter.Wait()
		}
		if len(s.results) == 0 {
			break
		}

		local := s.results
		s.results = nil

		s.resultsMu.Unlock()
		s.publish(local)
		s.resultsMu.Lock()
	}
	s.resultsMu.Unlock()
}

// publish drops stale results when invalidation is requested and emits the
// survivors as a single batch
func (s *Scheduler) publish(local []types.Result) {
	current := s.batch.Load()
	invalidate := s.invalidateOld.Load()

	res := make([]types.Result, 0, len(local))
	for _, r := range local {
		if invalidate && r.Batch != current {
			s.logger.Debugw("Discarding job for old batch", "job", r.Job.ID(), "batch", r.Batch, "current", current)
			continue
		}
		res = append(res, r)
	}

	discarded := len(local) - len(res)
	atomic.AddInt64(&s.totalDiscarded, int64(discarded))
	s.metrics.recordDiscarded(context.Background(), discarded)

	if len(res) == 0 {
		return
	}

	atomic.AddInt64(&s.totalPublished, int64(len(res)))
	s.metrics.recordPublished(context.Background(), len(res))

	label := fmt.Sprintf("%s(%d)", completedSignalName, len(res))
	if !s.completed.SafeEmit(label, res) {
		s.logger.Warnw("Some listeners failed to process completed jobs", "signal", label)
	}
}
