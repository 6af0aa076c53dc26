package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

const (
	defaultModeThreshold = domain.ModeCrisis
	defaultSettleBuffer  = 5 * time.Second
	defaultBurstDuration = 900
)

// KeeperJobs converts the raw keeper job entries into validated relay job
// descriptors. Labels default to the entry id, falling back to a positional
// name.
func (c *Config) KeeperJobs() ([]domain.RelayJob, error) {
	jobs := make([]domain.RelayJob, 0, len(c.Keeper.Jobs))
	for i, jc := range c.Keeper.Jobs {
		label := jc.ID
		if label == "" {
			label = fmt.Sprintf("relay-%d", i+1)
		}

		pool, err := poolKey(jc.Pool)
		if err != nil {
			return nil, fmt.Errorf("config: keeper job %s: %w", label, err)
		}

		feedIDs, err := parseFeedIDs(jc.FeedIDs)
		if err != nil {
			return nil, fmt.Errorf("config: keeper job %s: %w", label, err)
		}

		endpoints := jc.Endpoints
		if len(endpoints) == 0 {
			endpoints = c.Keeper.Endpoints
		}
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("config: keeper job %s: no oracle endpoints configured", label)
		}

		interval := jc.Interval.Duration
		if interval <= 0 {
			interval = c.Scheduler.KeeperInterval.Duration
		}

		jobs = append(jobs, domain.RelayJob{
			Label:     label,
			Pool:      pool,
			FeedIDs:   feedIDs,
			Endpoints: endpoints,
			Interval:  interval,
		})
	}
	return jobs, nil
}

// JitJobs converts the raw jit job entries into validated burst job
// descriptors, applying the threshold, buffer, and duration defaults.
func (c *Config) JitJobs() ([]domain.BurstJob, error) {
	jobs := make([]domain.BurstJob, 0, len(c.Jit.Jobs))
	for i, jc := range c.Jit.Jobs {
		label := jc.ID
		if label == "" {
			label = fmt.Sprintf("burst-%d", i+1)
		}

		pool, err := poolKey(jc.Pool)
		if err != nil {
			return nil, fmt.Errorf("config: jit job %s: %w", label, err)
		}

		liquidity, err := parseAmount(jc.Liquidity, "liquidity")
		if err != nil {
			return nil, fmt.Errorf("config: jit job %s: %w", label, err)
		}
		if liquidity.Sign() <= 0 {
			return nil, fmt.Errorf("config: jit job %s: liquidity must be positive", label)
		}
		amount0Max, err := parseAmount(orZero(jc.Amount0Max), "amount0_max")
		if err != nil {
			return nil, fmt.Errorf("config: jit job %s: %w", label, err)
		}
		amount1Max, err := parseAmount(orZero(jc.Amount1Max), "amount1_max")
		if err != nil {
			return nil, fmt.Errorf("config: jit job %s: %w", label, err)
		}

		threshold := defaultModeThreshold
		if jc.ModeThreshold != nil {
			if *jc.ModeThreshold < 0 {
				return nil, fmt.Errorf("config: jit job %s: mode_threshold must be >= 0", label)
			}
			threshold = domain.Mode(*jc.ModeThreshold)
		}
		buffer := jc.SettleBuffer.Duration
		if buffer <= 0 {
			buffer = defaultSettleBuffer
		}
		dur := jc.Duration
		if dur <= 0 {
			dur = defaultBurstDuration
		}
		interval := jc.Interval.Duration
		if interval <= 0 {
			interval = c.Scheduler.JitInterval.Duration
		}

		var flash *domain.FlashFundingSpec
		if jc.Flash != nil {
			flash, err = flashSpec(*jc.Flash)
			if err != nil {
				return nil, fmt.Errorf("config: jit job %s: %w", label, err)
			}
		}

		jobs = append(jobs, domain.BurstJob{
			Label:         label,
			Pool:          pool,
			Liquidity:     liquidity,
			Amount0Max:    amount0Max,
			Amount1Max:    amount1Max,
			Duration:      uint64(dur),
			ModeThreshold: threshold,
			SettleBuffer:  buffer,
			Interval:      interval,
			Flash:         flash,
		})
	}
	return jobs, nil
}

func poolKey(pc PoolConfig) (domain.PoolKey, error) {
	return domain.NewPoolKey(pc.Currency0, pc.Currency1, pc.Fee, pc.TickSpacing, pc.Hooks)
}

func flashSpec(fc FlashConfig) (*domain.FlashFundingSpec, error) {
	if !common.IsHexAddress(fc.Borrower) {
		return nil, fmt.Errorf("flash: invalid borrower address %q", fc.Borrower)
	}
	if !common.IsHexAddress(fc.Asset) {
		return nil, fmt.Errorf("flash: invalid asset address %q", fc.Asset)
	}
	amount, err := parseAmount(fc.Amount, "flash amount")
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("flash: amount must be positive")
	}

	spec := &domain.FlashFundingSpec{
		Borrower: common.HexToAddress(fc.Borrower),
		Asset:    common.HexToAddress(fc.Asset),
		Amount:   amount,
	}
	if fc.Executor != "" {
		if !common.IsHexAddress(fc.Executor) {
			return nil, fmt.Errorf("flash: invalid executor address %q", fc.Executor)
		}
		spec.Executor = common.HexToAddress(fc.Executor)
	}
	if fc.ExecutorData != "" {
		data, err := hex.DecodeString(strings.TrimPrefix(fc.ExecutorData, "0x"))
		if err != nil {
			return nil, fmt.Errorf("flash: invalid executor_data: %w", err)
		}
		spec.ExecutorData = data
	}
	return spec, nil
}

func parseFeedIDs(raw []string) ([]common.Hash, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no feed ids configured")
	}
	ids := make([]common.Hash, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		b, err := hex.DecodeString(strings.TrimPrefix(r, "0x"))
		if err != nil || len(b) != common.HashLength {
			return nil, fmt.Errorf("invalid feed id %q", r)
		}
		ids = append(ids, common.BytesToHash(b))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no feed ids configured")
	}
	return ids, nil
}

func parseAmount(raw, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", field, raw)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%s must not be negative", field)
	}
	return v, nil
}

func orZero(s string) string {
	if strings.TrimSpace(s) == "" {
		return "0"
	}
	return s
}
