// Package scheduler drives the agents' periodic cycles: one goroutine per
// job, immediate first run, then a fixed ticker with per-job retry.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pegguardlabs/pegguardd/internal/domain"
	"github.com/pegguardlabs/pegguardd/internal/notify"
)

// Job is one schedulable cycle.
type Job struct {
	Label    string
	Kind     domain.JobKind
	PoolID   common.Hash
	Interval time.Duration
	Cycle    func(ctx context.Context) error
}

// Scheduler runs jobs until the context is cancelled. Cycle failures are
// retried with a fixed delay, then logged, recorded, and swallowed so one
// bad cycle never stops the loop.
type Scheduler struct {
	log      *slog.Logger
	jobs     []Job
	runs     domain.RunStore
	cache    domain.RiskCache
	notifier *notify.Notifier

	retryAttempts int
	retryDelay    time.Duration
}

// Options carries the scheduler's optional collaborators and retry policy.
type Options struct {
	RunStore      domain.RunStore
	Cache         domain.RiskCache
	Notifier      *notify.Notifier
	RetryAttempts int
	RetryDelay    time.Duration
}

// New builds a scheduler for the given jobs. It returns domain.ErrNoJobs
// when the job list is empty.
func New(jobs []Job, opts Options, logger *slog.Logger) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, domain.ErrNoJobs
	}
	cache := opts.Cache
	if cache == nil {
		cache = domain.NopRiskCache{}
	}
	return &Scheduler{
		log:           logger.With("component", "scheduler"),
		jobs:          jobs,
		runs:          opts.RunStore,
		cache:         cache,
		notifier:      opts.Notifier,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
	}, nil
}

// Run starts every job and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler starting", "jobs", len(s.jobs))

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			return s.runJob(ctx, job)
		})
	}
	return g.Wait()
}

// runJob executes the job once immediately, then on every tick. A tick that
// fires while a cycle is still running is dropped: the ticker channel is
// drained after each cycle, so cycles for one job never overlap.
func (s *Scheduler) runJob(ctx context.Context, job Job) error {
	log := s.log.With("job", job.Label, "kind", string(job.Kind))
	log.Info("job starting", "interval", job.Interval.String())

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.executeCycle(ctx, job, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("job stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
		s.executeCycle(ctx, job, log)

		select {
		case <-ticker.C:
		default:
		}
	}
}

// executeCycle runs one cycle with retry and records the outcome. Failures
// are swallowed after recording.
func (s *Scheduler) executeCycle(ctx context.Context, job Job, log *slog.Logger) {
	if ctx.Err() != nil {
		return
	}

	runID := uuid.NewString()
	started := time.Now().UTC()

	attempts, err := withRetry(ctx, s.retryAttempts, s.retryDelay, job.Cycle)
	finished := time.Now().UTC()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("cycle failed",
			"run_id", runID,
			"attempts", attempts,
			"duration", finished.Sub(started).String(),
			"error", err)
		s.record(ctx, job, runID, false, attempts, err.Error(), started, finished, log)
		if s.notifier != nil {
			msg := fmt.Sprintf("job %s failed after %d attempt(s): %v", job.Label, attempts, err)
			if nerr := s.notifier.Notify(ctx, notify.EventCycleFailed, "Cycle failed", msg); nerr != nil {
				log.Warn("cycle failure notification failed", "error", nerr)
			}
		}
		return
	}

	log.Info("cycle completed",
		"run_id", runID,
		"attempts", attempts,
		"duration", finished.Sub(started).String())
	s.record(ctx, job, runID, true, attempts, "", started, finished, log)

	if herr := s.cache.Heartbeat(ctx, job.Label, finished); herr != nil {
		log.Warn("heartbeat write failed", "error", herr)
	}
}

func (s *Scheduler) record(ctx context.Context, job Job, runID string, success bool, attempts int, errMsg string, started, finished time.Time, log *slog.Logger) {
	if s.runs == nil {
		return
	}
	rec := domain.RunRecord{
		ID:         runID,
		Job:        job.Label,
		Kind:       job.Kind,
		PoolID:     job.PoolID,
		Success:    success,
		Attempts:   attempts,
		Error:      errMsg,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := s.runs.Insert(ctx, rec); err != nil {
		log.Warn("run record insert failed", "error", err)
	}
}
