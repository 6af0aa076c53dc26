package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/pegguardlabs/pegguardd/internal/domain"
	"github.com/pegguardlabs/pegguardd/internal/jit"
	"github.com/pegguardlabs/pegguardd/internal/keeper"
	"github.com/pegguardlabs/pegguardd/internal/oracle"
	"github.com/pegguardlabs/pegguardd/internal/scheduler"
)

// KeeperMode runs only the oracle relay jobs.
func (a *App) KeeperMode(ctx context.Context, deps *Dependencies) error {
	jobs, relayJobs, err := a.keeperJobs(deps)
	if err != nil {
		return err
	}
	return a.runJobs(ctx, deps, jobs, relayJobs)
}

// JitMode runs only the burst controller jobs.
func (a *App) JitMode(ctx context.Context, deps *Dependencies) error {
	jobs, err := a.jitJobs(deps)
	if err != nil {
		return err
	}
	return a.runJobs(ctx, deps, jobs, nil)
}

// FullMode runs both agents in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	keeperJobs, relayJobs, err := a.keeperJobs(deps)
	if err != nil {
		return err
	}
	jitJobs, err := a.jitJobs(deps)
	if err != nil {
		return err
	}
	return a.runJobs(ctx, deps, append(keeperJobs, jitJobs...), relayJobs)
}

// runJobs starts the scheduler plus the optional stream watcher and
// archiver loop, blocking until ctx is cancelled.
func (a *App) runJobs(ctx context.Context, deps *Dependencies, jobs []scheduler.Job, relayJobs []domain.RelayJob) error {
	sched, err := scheduler.New(jobs, scheduler.Options{
		RunStore:      deps.RunStore,
		Cache:         deps.Cache,
		Notifier:      deps.Notifier,
		RetryAttempts: a.cfg.Scheduler.RetryAttempts,
		RetryDelay:    a.cfg.Scheduler.RetryDelay.Duration,
	}, a.root)
	if err != nil {
		return fmt.Errorf("app: building scheduler: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})

	if a.cfg.Keeper.StreamEnabled && len(relayJobs) > 0 && len(a.cfg.Keeper.Endpoints) > 0 {
		watcher := oracle.NewStreamWatcher(
			a.cfg.Keeper.Endpoints[0],
			collectFeedIDs(relayJobs),
			nil,
			a.root,
		)
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		interval := a.cfg.S3.ArchiveInterval.Duration
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx, interval)
		})
	}

	return g.Wait()
}

// keeperJobs builds scheduler jobs for the relay agent. The relay job list
// is also returned for the stream watcher's feed subscription.
func (a *App) keeperJobs(deps *Dependencies) ([]scheduler.Job, []domain.RelayJob, error) {
	relayJobs, err := a.cfg.KeeperJobs()
	if err != nil {
		return nil, nil, err
	}

	relay := oracle.NewRelay(a.root)
	runner := keeper.NewRunner(relay, deps.Ledger, deps.Cache, deps.Notifier,
		a.cfg.Scheduler.SettlePause.Duration, a.root)

	jobs := make([]scheduler.Job, 0, len(relayJobs))
	for _, rj := range relayJobs {
		jobs = append(jobs, scheduler.Job{
			Label:    rj.Label,
			Kind:     domain.JobRelay,
			PoolID:   rj.Pool.ID(),
			Interval: rj.Interval,
			Cycle: func(ctx context.Context) error {
				return runner.RunCycle(ctx, rj)
			},
		})
	}
	return jobs, relayJobs, nil
}

// jitJobs builds scheduler jobs for the burst controller.
func (a *App) jitJobs(deps *Dependencies) ([]scheduler.Job, error) {
	burstJobs, err := a.cfg.JitJobs()
	if err != nil {
		return nil, err
	}

	controller := jit.NewController(deps.Ledger, deps.Cache, deps.BurstStore, deps.Notifier, a.root)
	operator := deps.Ledger.Operator()

	jobs := make([]scheduler.Job, 0, len(burstJobs))
	for _, bj := range burstJobs {
		jobs = append(jobs, scheduler.Job{
			Label:    bj.Label,
			Kind:     domain.JobBurst,
			PoolID:   bj.Pool.ID(),
			Interval: bj.Interval,
			Cycle: func(ctx context.Context) error {
				return controller.RunCycle(ctx, bj, operator)
			},
		})
	}
	return jobs, nil
}

func collectFeedIDs(relayJobs []domain.RelayJob) []common.Hash {
	seen := make(map[common.Hash]bool)
	var ids []common.Hash
	for _, rj := range relayJobs {
		for _, id := range rj.FeedIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
