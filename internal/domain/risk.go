package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Mode is the ordinal risk classification computed on-chain from oracle price
// deviation and confidence.
type Mode uint8

const (
	ModeCalm Mode = iota
	ModeAlert
	ModeCrisis
)

// String returns the human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeCalm:
		return "calm"
	case ModeAlert:
		return "alert"
	case ModeCrisis:
		return "crisis"
	default:
		return "unknown"
	}
}

// RiskSnapshot is the hook's view of a pool: the oracle feed configuration
// plus the mutable risk state. It is owned by the ledger and fetched fresh
// every cycle; the agents never cache it across decisions.
type RiskSnapshot struct {
	FeedID0 common.Hash `json:"feed_id0"`
	FeedID1 common.Hash `json:"feed_id1"`
	BaseFee uint32      `json:"base_fee"`
	MaxFee  uint32      `json:"max_fee"`
	MinFee  uint32      `json:"min_fee"`

	Mode              Mode     `json:"mode"`
	JITActive         bool     `json:"jit_active"`
	LastDepegBps      *big.Int `json:"last_depeg_bps"`
	LastConfidenceBps *big.Int `json:"last_confidence_bps"`
	LastOverrideFee   uint32   `json:"last_override_fee"`
	ReserveBalance    *big.Int `json:"reserve_balance"`
	TotalPenaltyFees  *big.Int `json:"total_penalty_fees"`
	TotalRebates      *big.Int `json:"total_rebates"`
}

// BurstRecord is the authoritative on-chain state of a burst position, keyed
// by pool id. Expiry is a unix timestamp in seconds.
type BurstRecord struct {
	TokenID   *big.Int       `json:"token_id"`
	Funder    common.Address `json:"funder"`
	Liquidity *big.Int       `json:"liquidity"`
	Expiry    uint64         `json:"expiry"`
	Active    bool           `json:"active"`
}

// UpdatePayload is the opaque signed price-update data fetched from the price
// service and passed through to the oracle contract. One entry per feed
// batch; the agents never inspect the bytes.
type UpdatePayload [][]byte
