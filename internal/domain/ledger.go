package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Ledger is the on-chain boundary consumed by both agents. Reads return the
// current chain state; writes sign, submit, wait for mining, and return the
// receipt. A mined-but-reverted transaction surfaces as an error wrapping
// ErrTxReverted so the retry policy treats it like any other cycle failure.
type Ledger interface {
	// ReadRiskSnapshot returns the hook's feed configuration and risk state
	// for the pool.
	ReadRiskSnapshot(ctx context.Context, pool PoolKey) (RiskSnapshot, error)

	// ReadBurstRecord returns the manager's burst record for the pool id.
	ReadBurstRecord(ctx context.Context, poolID common.Hash) (BurstRecord, error)

	// TriggerEvaluation asks the keeper contract to recompute the pool's risk
	// mode from the freshly pushed oracle prices.
	TriggerEvaluation(ctx context.Context, pool PoolKey) (*types.Receipt, error)

	// OpenBurst opens a direct-funded burst position.
	OpenBurst(ctx context.Context, pool PoolKey, liquidity, amount0Max, amount1Max *big.Int, operator common.Address, duration uint64) (*types.Receipt, error)

	// OpenFlashFundedBurst opens a burst whose capital is flash-borrowed and
	// repaid within the same transaction.
	OpenFlashFundedBurst(ctx context.Context, pool PoolKey, liquidity, amount0Max, amount1Max *big.Int, spec FlashFundingSpec, operator common.Address) (*types.Receipt, error)

	// CloseBurst settles an expired burst.
	CloseBurst(ctx context.Context, pool PoolKey, minOut0, minOut1 *big.Int) (*types.Receipt, error)

	// GetUpdateFee quotes the fee the oracle contract charges for the payload.
	GetUpdateFee(ctx context.Context, update UpdatePayload) (*big.Int, error)

	// SubmitUpdate pushes the signed price update on-chain, paying fee.
	SubmitUpdate(ctx context.Context, update UpdatePayload, fee *big.Int) (*types.Receipt, error)
}
