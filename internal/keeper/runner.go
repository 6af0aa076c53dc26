// Package keeper runs the oracle relay cycle: fetch signed price updates,
// push them on-chain, and trigger the keeper contract's risk evaluation.
package keeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pegguardlabs/pegguardd/internal/domain"
	"github.com/pegguardlabs/pegguardd/internal/ledger"
	"github.com/pegguardlabs/pegguardd/internal/notify"
)

// Fetcher retrieves signed update data for a feed set, trying endpoints in
// order.
type Fetcher interface {
	Fetch(ctx context.Context, feedIDs []common.Hash, endpoints []string) (domain.UpdatePayload, error)
}

// Runner executes relay cycles for one pool.
type Runner struct {
	log      *slog.Logger
	fetcher  Fetcher
	ledger   domain.Ledger
	cache    domain.RiskCache
	notifier *notify.Notifier

	// settlePause is the wait between the oracle update landing and the
	// evaluation trigger, giving the node time to settle state.
	settlePause time.Duration
}

// NewRunner wires a relay runner. cache may be a NopRiskCache and notifier
// may be nil.
func NewRunner(fetcher Fetcher, ldgr domain.Ledger, cache domain.RiskCache, notifier *notify.Notifier, settlePause time.Duration, logger *slog.Logger) *Runner {
	if cache == nil {
		cache = domain.NopRiskCache{}
	}
	return &Runner{
		log:         logger.With("component", "keeper"),
		fetcher:     fetcher,
		ledger:      ldgr,
		cache:       cache,
		notifier:    notifier,
		settlePause: settlePause,
	}
}

// RunCycle performs one full relay cycle for the job: fetch update data,
// quote and pay the oracle fee, push the update, pause, then trigger the
// keeper evaluation and interpret its events. Exactly one fee quote, one
// update submission, and one evaluation per successful fetch.
func (r *Runner) RunCycle(ctx context.Context, job domain.RelayJob) error {
	log := r.log.With("job", job.Label, "pool_id", job.Pool.ID().Hex())

	update, err := r.fetcher.Fetch(ctx, job.FeedIDs, job.Endpoints)
	if err != nil {
		return fmt.Errorf("keeper: fetching update data: %w", err)
	}
	log.Debug("update data fetched", "payloads", len(update))

	fee, err := r.ledger.GetUpdateFee(ctx, update)
	if err != nil {
		return fmt.Errorf("keeper: quoting update fee: %w", err)
	}

	receipt, err := r.ledger.SubmitUpdate(ctx, update, fee)
	if err != nil {
		return fmt.Errorf("keeper: submitting update: %w", err)
	}
	log.Info("oracle update submitted",
		"fee_wei", fee.String(),
		"tx", receipt.TxHash.Hex())

	if r.settlePause > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.settlePause):
		}
	}

	evalReceipt, err := r.ledger.TriggerEvaluation(ctx, job.Pool)
	if err != nil {
		return fmt.Errorf("keeper: triggering evaluation: %w", err)
	}

	for _, ev := range ledger.InterpretReceipt(evalReceipt) {
		switch ev.Kind {
		case ledger.EventRiskEvaluated:
			log.Info("risk evaluated",
				"target_mode", ev.Mode.String(),
				"jit_target", ev.JITTarget,
				"depeg_bps", ev.DepegBps.String(),
				"confidence_bps", ev.ConfidenceBps.String())
		case ledger.EventStaleFeed:
			log.Warn("stale feed detected", "feed_id", ev.FeedID.Hex())
			if r.notifier != nil {
				msg := fmt.Sprintf("pool %s reported stale feed %s", ev.PoolID.Hex(), ev.FeedID.Hex())
				if nerr := r.notifier.Notify(ctx, notify.EventStaleFeed, "Stale price feed", msg); nerr != nil {
					log.Warn("stale feed notification failed", "error", nerr)
				}
			}
		}
	}

	r.refreshCache(ctx, job, log)
	return nil
}

// refreshCache mirrors the post-evaluation snapshot into the cache. Best
// effort: cache failures never fail the cycle.
func (r *Runner) refreshCache(ctx context.Context, job domain.RelayJob, log *slog.Logger) {
	snap, err := r.ledger.ReadRiskSnapshot(ctx, job.Pool)
	if err != nil {
		log.Warn("post-evaluation snapshot read failed", "error", err)
		return
	}
	if err := r.cache.SetSnapshot(ctx, job.Pool.ID(), snap); err != nil {
		log.Warn("snapshot cache write failed", "error", err)
		return
	}
	log.Debug("snapshot cached", "mode", snap.Mode.String(), "jit_active", snap.JITActive)
}
