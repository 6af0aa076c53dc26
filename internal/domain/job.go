package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// JobKind discriminates the two job shapes. The shape is fixed when the
// descriptor is built from configuration; the scheduler never inspects it
// beyond labeling.
type JobKind string

const (
	JobRelay JobKind = "relay"
	JobBurst JobKind = "burst"
)

// RelayJob describes one oracle relay task: fetch signed updates for the feed
// set from the first reachable endpoint, push them on-chain, and trigger a
// risk re-evaluation for the pool. Endpoint order is the failover priority.
type RelayJob struct {
	Label     string
	Pool      PoolKey
	FeedIDs   []common.Hash
	Endpoints []string
	Interval  time.Duration
}

// FlashFundingSpec routes a burst open through an atomic borrow-use-repay
// path instead of pre-funded capital. Executor is the zero address when no
// post-open executor call is wanted.
type FlashFundingSpec struct {
	Borrower     common.Address
	Asset        common.Address
	Amount       *big.Int
	Executor     common.Address
	ExecutorData []byte
}

// BurstJob describes one burst-controller task: watch the pool's risk mode
// and open or settle a bounded-duration liquidity burst. Duration and the
// burst expiry are in seconds of unix time.
type BurstJob struct {
	Label         string
	Pool          PoolKey
	Liquidity     *big.Int
	Amount0Max    *big.Int
	Amount1Max    *big.Int
	Duration      uint64
	ModeThreshold Mode
	SettleBuffer  time.Duration
	Interval      time.Duration
	Flash         *FlashFundingSpec
}
