package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RiskCache mirrors the latest observed on-chain state for operators and
// external tooling. It is purely advisory: the agents always decide from a
// fresh ledger read, never from the cache.
type RiskCache interface {
	SetSnapshot(ctx context.Context, poolID common.Hash, snap RiskSnapshot) error
	GetSnapshot(ctx context.Context, poolID common.Hash) (RiskSnapshot, error)
	SetBurst(ctx context.Context, poolID common.Hash, rec BurstRecord) error
	Heartbeat(ctx context.Context, job string, at time.Time) error
}

// NopRiskCache is the RiskCache used when no cache backend is configured.
type NopRiskCache struct{}

func (NopRiskCache) SetSnapshot(context.Context, common.Hash, RiskSnapshot) error { return nil }

func (NopRiskCache) GetSnapshot(context.Context, common.Hash) (RiskSnapshot, error) {
	return RiskSnapshot{}, ErrNotFound
}

func (NopRiskCache) SetBurst(context.Context, common.Hash, BurstRecord) error { return nil }

func (NopRiskCache) Heartbeat(context.Context, string, time.Time) error { return nil }
