// Package domain defines the core data model shared by the pegguard agents:
// pool identities, job descriptors, on-chain risk state, and the interfaces
// through which the agents talk to the ledger, stores, and caches.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DynamicFee is the fee sentinel for pools whose swap fee is controlled by
// the hook rather than fixed at pool creation.
const DynamicFee uint32 = 0x800000

// PoolKey identifies a pool: two currencies, a fee tier, a tick spacing, and
// the hook contract governing it. Keys are normalized at construction and
// immutable afterwards.
type PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address

	id common.Hash
}

var (
	addressType = mustABIType("address")
	uint24Type  = mustABIType("uint24")
	int24Type   = mustABIType("int24")

	poolKeyArgs = abi.Arguments{
		{Type: addressType},
		{Type: addressType},
		{Type: uint24Type},
		{Type: int24Type},
		{Type: addressType},
	}
)

func mustABIType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("domain: abi type %s: %v", t, err))
	}
	return ty
}

// NewPoolKey validates and normalizes the raw pool parameters and derives the
// pool id eagerly so ID never fails. A fee <= 0 selects the dynamic-fee
// sentinel, matching how on-chain pool keys are declared for hook-managed
// fees.
func NewPoolKey(currency0, currency1 string, fee int64, tickSpacing int64, hooks string) (PoolKey, error) {
	if !common.IsHexAddress(currency0) {
		return PoolKey{}, fmt.Errorf("domain: invalid currency0 address %q", currency0)
	}
	if !common.IsHexAddress(currency1) {
		return PoolKey{}, fmt.Errorf("domain: invalid currency1 address %q", currency1)
	}
	if !common.IsHexAddress(hooks) {
		return PoolKey{}, fmt.Errorf("domain: invalid hooks address %q", hooks)
	}
	if fee <= 0 {
		fee = int64(DynamicFee)
	}
	if fee > 0xFFFFFF {
		return PoolKey{}, fmt.Errorf("domain: fee %d exceeds uint24", fee)
	}
	if tickSpacing < -(1<<23) || tickSpacing >= 1<<23 {
		return PoolKey{}, fmt.Errorf("domain: tick spacing %d exceeds int24", tickSpacing)
	}

	k := PoolKey{
		Currency0:   common.HexToAddress(currency0),
		Currency1:   common.HexToAddress(currency1),
		Fee:         uint32(fee),
		TickSpacing: int32(tickSpacing),
		Hooks:       common.HexToAddress(hooks),
	}

	packed, err := poolKeyArgs.Pack(
		k.Currency0,
		k.Currency1,
		big.NewInt(int64(k.Fee)),
		big.NewInt(int64(k.TickSpacing)),
		k.Hooks,
	)
	if err != nil {
		return PoolKey{}, fmt.Errorf("domain: encode pool key: %w", err)
	}
	k.id = crypto.Keccak256Hash(packed)

	return k, nil
}

// ID returns the pool id: keccak256 of the ABI-encoded key tuple. The
// derivation is deterministic, so the id is stable across restarts.
func (k PoolKey) ID() common.Hash {
	return k.id
}

// String renders the key compactly for logs.
func (k PoolKey) String() string {
	return fmt.Sprintf("%s/%s fee=%d tick=%d hook=%s",
		k.Currency0.Hex(), k.Currency1.Hex(), k.Fee, k.TickSpacing, k.Hooks.Hex())
}
