// Package jit implements the burst controller: it opens temporary
// concentrated liquidity positions when a pool's risk mode crosses the
// configured threshold and settles them once they expire.
package jit

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/pegguardlabs/pegguardd/internal/domain"
	"github.com/pegguardlabs/pegguardd/internal/notify"
)

// Action is the single state transition a cycle may execute.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionClose
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionOpen:
		return "open"
	case ActionClose:
		return "close"
	default:
		return "none"
	}
}

// Decide returns the transition for the current on-chain state. Open when
// the risk mode has reached the threshold and no burst is active; close when
// the active burst has been expired for longer than the settle buffer.
// Never both in one cycle: an open burst is only re-evaluated for closing on
// a later cycle.
func Decide(snap domain.RiskSnapshot, rec domain.BurstRecord, now time.Time, threshold domain.Mode, buffer time.Duration) Action {
	if !rec.Active {
		if snap.Mode >= threshold {
			return ActionOpen
		}
		return ActionNone
	}
	deadline := int64(rec.Expiry) + int64(buffer/time.Second)
	if now.Unix() > deadline {
		return ActionClose
	}
	return ActionNone
}

// Controller executes burst cycles for configured pools.
type Controller struct {
	log      *slog.Logger
	ledger   domain.Ledger
	cache    domain.RiskCache
	events   domain.BurstEventStore
	notifier *notify.Notifier
	now      func() time.Time
}

// NewController wires a burst controller. cache, events, and notifier are
// optional.
func NewController(ldgr domain.Ledger, cache domain.RiskCache, events domain.BurstEventStore, notifier *notify.Notifier, logger *slog.Logger) *Controller {
	if cache == nil {
		cache = domain.NopRiskCache{}
	}
	return &Controller{
		log:      logger.With("component", "jit"),
		ledger:   ldgr,
		cache:    cache,
		events:   events,
		notifier: notifier,
		now:      time.Now,
	}
}

// RunCycle reads fresh pool state, decides, and executes at most one write.
// operator receives settled liquidity on direct-funded opens.
func (c *Controller) RunCycle(ctx context.Context, job domain.BurstJob, operator common.Address) error {
	log := c.log.With("job", job.Label, "pool_id", job.Pool.ID().Hex())

	snap, err := c.ledger.ReadRiskSnapshot(ctx, job.Pool)
	if err != nil {
		return fmt.Errorf("jit: reading risk snapshot: %w", err)
	}
	rec, err := c.ledger.ReadBurstRecord(ctx, job.Pool.ID())
	if err != nil {
		return fmt.Errorf("jit: reading burst record: %w", err)
	}

	c.mirrorState(ctx, job, snap, rec, log)

	switch Decide(snap, rec, c.now(), job.ModeThreshold, job.SettleBuffer) {
	case ActionOpen:
		return c.openBurst(ctx, job, snap, operator, log)
	case ActionClose:
		return c.closeBurst(ctx, job, rec, log)
	default:
		log.Debug("no transition",
			"mode", snap.Mode.String(),
			"threshold", job.ModeThreshold.String(),
			"burst_active", rec.Active)
		return nil
	}
}

func (c *Controller) openBurst(ctx context.Context, job domain.BurstJob, snap domain.RiskSnapshot, operator common.Address, log *slog.Logger) error {
	action := "open"
	if job.Flash != nil {
		action = "open_flash"
	}
	log.Info("opening burst",
		"action", action,
		"mode", snap.Mode.String(),
		"liquidity", job.Liquidity.String(),
		"duration_s", job.Duration)

	var (
		receipt *types.Receipt
		err     error
	)
	if job.Flash != nil {
		receipt, err = c.ledger.OpenFlashFundedBurst(ctx, job.Pool, job.Liquidity, job.Amount0Max, job.Amount1Max, *job.Flash, operator)
	} else {
		receipt, err = c.ledger.OpenBurst(ctx, job.Pool, job.Liquidity, job.Amount0Max, job.Amount1Max, operator, job.Duration)
	}
	if err != nil {
		return fmt.Errorf("jit: opening burst: %w", err)
	}
	log.Info("burst opened", "tx", receipt.TxHash.Hex())

	c.recordEvent(ctx, job, action, nil, receipt.TxHash.Hex(), log)
	c.notify(ctx, notify.EventBurstOpened, "Burst opened",
		fmt.Sprintf("pool %s: %s burst, liquidity %s, tx %s",
			job.Pool.ID().Hex(), action, job.Liquidity.String(), receipt.TxHash.Hex()), log)
	return nil
}

func (c *Controller) closeBurst(ctx context.Context, job domain.BurstJob, rec domain.BurstRecord, log *slog.Logger) error {
	log.Info("settling burst",
		"token_id", rec.TokenID.String(),
		"expiry", rec.Expiry)

	receipt, err := c.ledger.CloseBurst(ctx, job.Pool, big.NewInt(0), big.NewInt(0))
	if err != nil {
		return fmt.Errorf("jit: settling burst: %w", err)
	}
	log.Info("burst settled", "tx", receipt.TxHash.Hex())

	c.recordEvent(ctx, job, "close", rec.TokenID, receipt.TxHash.Hex(), log)
	c.notify(ctx, notify.EventBurstClosed, "Burst settled",
		fmt.Sprintf("pool %s: token %s settled, tx %s",
			job.Pool.ID().Hex(), rec.TokenID.String(), receipt.TxHash.Hex()), log)
	return nil
}

// mirrorState pushes the freshly read state into the cache. Best effort.
func (c *Controller) mirrorState(ctx context.Context, job domain.BurstJob, snap domain.RiskSnapshot, rec domain.BurstRecord, log *slog.Logger) {
	if err := c.cache.SetSnapshot(ctx, job.Pool.ID(), snap); err != nil {
		log.Warn("snapshot cache write failed", "error", err)
	}
	if err := c.cache.SetBurst(ctx, job.Pool.ID(), rec); err != nil {
		log.Warn("burst cache write failed", "error", err)
	}
}

func (c *Controller) recordEvent(ctx context.Context, job domain.BurstJob, action string, tokenID *big.Int, txHash string, log *slog.Logger) {
	if c.events == nil {
		return
	}
	ev := domain.BurstEvent{
		ID:        uuid.NewString(),
		Job:       job.Label,
		PoolID:    job.Pool.ID(),
		Action:    action,
		Liquidity: job.Liquidity.String(),
		TxHash:    txHash,
		CreatedAt: c.now().UTC(),
	}
	if tokenID != nil {
		ev.TokenID = tokenID.String()
	}
	if err := c.events.Insert(ctx, ev); err != nil {
		log.Warn("burst event insert failed", "error", err)
	}
}

func (c *Controller) notify(ctx context.Context, event notify.Event, title, message string, log *slog.Logger) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, event, title, message); err != nil {
		log.Warn("notification failed", "error", err)
	}
}
