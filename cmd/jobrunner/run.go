package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jzx17/jobpool/pkg/logging"
	"github.com/jzx17/jobpool/pkg/retry"
	"github.com/jzx17/jobpool/pkg/types"
	"github.com/jzx17/jobpool/pkg/worker"
)

var errSynthetic = errors.New("synthetic failure")

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobrunner",
		Short: "Drive a priority scheduler with synthetic jobs",
		Long: `jobrunner enqueues rounds of synthetic jobs on a priority scheduler and
prints what was published once the scheduler is idle.

Every flag can also be set through a JOBRUNNER_ environment variable,
for instance JOBRUNNER_FAIL_RATE=0.2, or through a configuration file.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfiguration(cmd)
			if err != nil {
				return err
			}

			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}
	registerFlags(cmd)
	return cmd
}

func run(ctx context.Context, cfg configuration, out io.Writer) error {
	logger, err := logging.New(cfg.loggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	policy, err := cfg.failurePolicy()
	if err != nil {
		return err
	}

	s, err := worker.NewScheduler(&worker.SchedulerConfig{
		PoolSize:      cfg.Workers,
		Logger:        logger,
		FailurePolicy: policy,
		ErrorHandler: func(err error) error {
			logger.Debug("job failure reported", zap.Error(err))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	defer s.Close()

	sum := newSummary()
	s.Completed().Connect(sum.record)

	for round := 0; round < cfg.Rounds; round++ {
		if _, err := s.Enqueue(buildJobs(cfg, round, logger), cfg.Invalidate); err != nil {
			return err
		}
		s.Notify()
	}

	if cfg.CancelAfter > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(cfg.CancelAfter):
			dropped := s.Cancel()
			logger.Info("cancelled remaining jobs", zap.Int("dropped", dropped))
		}
	}

	waitIdle(ctx, s)

	if err := s.Close(); err != nil {
		return err
	}

	sum.print(out, s.Stats())
	return ctx.Err()
}

func buildJobs(cfg configuration, round int, logger *zap.Logger) []types.Job {
	priority, _ := types.ParsePriority(cfg.Priority)

	jobs := make([]types.Job, 0, cfg.Jobs)
	for i := 0; i < cfg.Jobs; i++ {
		p := priority
		if cfg.Priority == "" {
			p = types.Priorities[(round+i)%len(types.Priorities)]
		}

		var job types.Job = worker.NewJob(syntheticWork(cfg.Duration, cfg.FailRate), p)
		if cfg.Retries > 1 {
			rp := retry.DefaultPolicy()
			rp.MaxAttempts = cfg.Retries
			rp.InitialDelay = 10 * time.Millisecond
			rp.Jitter = retry.EqualJitter
			job = retry.NewJob(job, rp, retry.WithLogger(logger))
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func syntheticWork(d time.Duration, failRate float64) worker.JobFunc {
	return func(ctx context.Context) error {
		if d > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
			}
		}
		if failRate > 0 && rand.Float64() < failRate {
			return errSynthetic
		}
		return nil
	}
}

// waitIdle returns once no job is queued and every worker waits for work
func waitIdle(ctx context.Context, s *worker.Scheduler) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.Pending() > 0 {
			continue
		}

		idle := true
		for _, ws := range s.Stats().Workers {
			if !ws.IsIdle() {
				idle = false
				break
			}
		}
		if idle {
			return
		}
	}
}

type summary struct {
	mu         sync.Mutex
	batches    int
	results    int
	failed     int
	byPriority map[types.Priority]int
	total      time.Duration
}

func newSummary() *summary {
	return &summary{byPriority: make(map[types.Priority]int)}
}

func (s *summary) record(results []types.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches++
	for _, r := range results {
		s.results++
		if r.Failed() {
			s.failed++
		}
		s.byPriority[r.Job.Priority()]++
		s.total += r.Duration
	}
}

func (s *summary) print(out io.Writer, stats worker.SchedulerStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(out, "Workers: %d\n", stats.PoolSize)
	fmt.Fprintf(out, "Batch: %d\n", stats.Batch)
	fmt.Fprintf(out, "Enqueued: %d, executed: %d, failed: %d\n", stats.TotalEnqueued, stats.TotalExecuted, stats.TotalFailed)
	fmt.Fprintf(out, "Published: %d in %d batch(es), with error: %d\n", s.results, s.batches, s.failed)
	fmt.Fprintf(out, "Discarded stale: %d\n", stats.TotalDiscarded)
	for _, p := range types.Priorities {
		fmt.Fprintf(out, "  %-6s %d\n", p.String()+":", s.byPriority[p])
	}
	if s.results > 0 {
		fmt.Fprintf(out, "Average duration: %v\n", s.total/time.Duration(s.results))
	}
}
