package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RunRecord is one completed scheduler cycle, successful or not. Attempts
// counts every execution within the cycle, including retries.
type RunRecord struct {
	ID         string
	Job        string
	Kind       JobKind
	PoolID     common.Hash
	Success    bool
	Attempts   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStore persists cycle run history.
type RunStore interface {
	Insert(ctx context.Context, rec RunRecord) error
	ListBefore(ctx context.Context, before time.Time) ([]RunRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BurstEvent records a burst lifecycle transition the controller executed.
type BurstEvent struct {
	ID        string
	Job       string
	PoolID    common.Hash
	Action    string // "open", "open_flash", "close"
	TokenID   string
	Liquidity string
	TxHash    string
	CreatedAt time.Time
}

// BurstEventStore persists burst open/close history.
type BurstEventStore interface {
	Insert(ctx context.Context, ev BurstEvent) error
	ListByPool(ctx context.Context, poolID common.Hash, limit int) ([]BurstEvent, error)
}
