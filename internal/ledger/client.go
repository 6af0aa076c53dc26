// Package ledger implements the on-chain boundary: bound contracts for the
// keeper, oracle, burst manager, hook, and flash borrowers, plus the signing
// transactor shared by every write.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// Addresses holds the deployed contract addresses. Keeper and Oracle are
// required for relay jobs, Manager and Hook for burst jobs; either pair may
// be zero when the corresponding agent is disabled.
type Addresses struct {
	Keeper  common.Address
	Oracle  common.Address
	Manager common.Address
	Hook    common.Address
}

// Client is the concrete domain.Ledger backed by an Ethereum JSON-RPC node.
// All writes share one transactor, so transaction submission is serialized
// to keep nonces ordered; waiting for mining happens outside the lock.
type Client struct {
	log      *slog.Logger
	eth      *ethclient.Client
	auth     *bind.TransactOpts
	operator common.Address

	txMu sync.Mutex

	keeper  *bind.BoundContract
	oracle  *bind.BoundContract
	manager *bind.BoundContract
	hook    *bind.BoundContract

	borrowerMu sync.Mutex
	borrowers  map[common.Address]*bind.BoundContract
}

var _ domain.Ledger = (*Client)(nil)

// New dials the RPC endpoint, derives the signing account from the hex
// private key, and binds whichever contracts have non-zero addresses.
func New(ctx context.Context, rpcURL string, chainID int64, privateKeyHex string, addrs Addresses, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dialing %s: %w", rpcURL, err)
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: parsing private key: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: building transactor: %w", err)
	}

	c := &Client{
		log:       logger.With("component", "ledger"),
		eth:       eth,
		auth:      auth,
		operator:  auth.From,
		borrowers: make(map[common.Address]*bind.BoundContract),
	}
	if addrs.Keeper != (common.Address{}) {
		c.keeper = bind.NewBoundContract(addrs.Keeper, keeperABI, eth, eth, eth)
	}
	if addrs.Oracle != (common.Address{}) {
		c.oracle = bind.NewBoundContract(addrs.Oracle, oracleABI, eth, eth, eth)
	}
	if addrs.Manager != (common.Address{}) {
		c.manager = bind.NewBoundContract(addrs.Manager, managerABI, eth, eth, eth)
	}
	if addrs.Hook != (common.Address{}) {
		c.hook = bind.NewBoundContract(addrs.Hook, keeperABI, eth, eth, eth)
	}

	c.log.Info("ledger connected",
		"rpc_url", rpcURL,
		"chain_id", chainID,
		"operator", c.operator.Hex())
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Operator returns the signing account address.
func (c *Client) Operator() common.Address {
	return c.operator
}

// abiPoolKey mirrors the on-chain PoolKey tuple. uint24 and int24 have no
// native Go width, so the ABI layer represents them as *big.Int.
type abiPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

func toABIPoolKey(pool domain.PoolKey) abiPoolKey {
	return abiPoolKey{
		Currency0:   pool.Currency0,
		Currency1:   pool.Currency1,
		Fee:         new(big.Int).SetUint64(uint64(pool.Fee)),
		TickSpacing: big.NewInt(int64(pool.TickSpacing)),
		Hooks:       pool.Hooks,
	}
}

type feedConfigResult struct {
	PriceFeedId0 [32]byte
	PriceFeedId1 [32]byte
	BaseFee      *big.Int
	MaxFee       *big.Int
	MinFee       *big.Int
}

type riskStateResult struct {
	Mode               uint8
	JitLiquidityActive bool
	LastDepegBps       *big.Int
	LastConfidenceBps  *big.Int
	LastOverrideFee    *big.Int
	ReserveBalance     *big.Int
	TotalPenaltyFees   *big.Int
	TotalRebates       *big.Int
}

type flashBurstParams struct {
	Currency0    common.Address
	Currency1    common.Address
	Fee          *big.Int
	TickSpacing  *big.Int
	Hooks        common.Address
	Liquidity    *big.Int
	Amount0Max   *big.Int
	Amount1Max   *big.Int
	Executor     common.Address
	ExecutorData []byte
	Asset        common.Address
	Amount       *big.Int
	Operator     common.Address
}

// ReadRiskSnapshot calls getPoolSnapshot, preferring the hook binding and
// falling back to the keeper, which exposes the same view.
func (c *Client) ReadRiskSnapshot(ctx context.Context, pool domain.PoolKey) (domain.RiskSnapshot, error) {
	contract := c.hook
	if contract == nil {
		contract = c.keeper
	}
	if contract == nil {
		return domain.RiskSnapshot{}, fmt.Errorf("ledger: no hook or keeper contract bound")
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := contract.Call(opts, &out, "getPoolSnapshot", toABIPoolKey(pool)); err != nil {
		return domain.RiskSnapshot{}, fmt.Errorf("ledger: getPoolSnapshot %s: %w", pool.ID(), err)
	}
	if len(out) != 2 {
		return domain.RiskSnapshot{}, fmt.Errorf("ledger: getPoolSnapshot returned %d values, want 2", len(out))
	}

	cfg := *abi.ConvertType(out[0], new(feedConfigResult)).(*feedConfigResult)
	state := *abi.ConvertType(out[1], new(riskStateResult)).(*riskStateResult)

	return domain.RiskSnapshot{
		FeedID0:           common.Hash(cfg.PriceFeedId0),
		FeedID1:           common.Hash(cfg.PriceFeedId1),
		BaseFee:           uint32(cfg.BaseFee.Uint64()),
		MaxFee:            uint32(cfg.MaxFee.Uint64()),
		MinFee:            uint32(cfg.MinFee.Uint64()),
		Mode:              domain.Mode(state.Mode),
		JITActive:         state.JitLiquidityActive,
		LastDepegBps:      state.LastDepegBps,
		LastConfidenceBps: state.LastConfidenceBps,
		LastOverrideFee:   uint32(state.LastOverrideFee.Uint64()),
		ReserveBalance:    state.ReserveBalance,
		TotalPenaltyFees:  state.TotalPenaltyFees,
		TotalRebates:      state.TotalRebates,
	}, nil
}

// ReadBurstRecord calls the manager's bursts mapping for the pool id.
func (c *Client) ReadBurstRecord(ctx context.Context, poolID common.Hash) (domain.BurstRecord, error) {
	if c.manager == nil {
		return domain.BurstRecord{}, fmt.Errorf("ledger: no manager contract bound")
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.manager.Call(opts, &out, "bursts", [32]byte(poolID)); err != nil {
		return domain.BurstRecord{}, fmt.Errorf("ledger: bursts %s: %w", poolID, err)
	}
	if len(out) != 5 {
		return domain.BurstRecord{}, fmt.Errorf("ledger: bursts returned %d values, want 5", len(out))
	}

	return domain.BurstRecord{
		TokenID:   out[0].(*big.Int),
		Funder:    out[1].(common.Address),
		Liquidity: out[2].(*big.Int),
		Expiry:    out[3].(uint64),
		Active:    out[4].(bool),
	}, nil
}

// TriggerEvaluation submits evaluateAndUpdate on the keeper contract.
func (c *Client) TriggerEvaluation(ctx context.Context, pool domain.PoolKey) (*types.Receipt, error) {
	if c.keeper == nil {
		return nil, fmt.Errorf("ledger: no keeper contract bound")
	}
	return c.transact(ctx, c.keeper, nil, "evaluateAndUpdate", toABIPoolKey(pool))
}

// OpenBurst submits executeBurst on the manager contract.
func (c *Client) OpenBurst(ctx context.Context, pool domain.PoolKey, liquidity, amount0Max, amount1Max *big.Int, operator common.Address, duration uint64) (*types.Receipt, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("ledger: no manager contract bound")
	}
	return c.transact(ctx, c.manager, nil, "executeBurst",
		toABIPoolKey(pool), liquidity, amount0Max, amount1Max, operator, duration)
}

// OpenFlashFundedBurst submits initiateFlashBurst on the borrower contract
// named by the funding spec. Borrower bindings are cached per address.
func (c *Client) OpenFlashFundedBurst(ctx context.Context, pool domain.PoolKey, liquidity, amount0Max, amount1Max *big.Int, spec domain.FlashFundingSpec, operator common.Address) (*types.Receipt, error) {
	borrower := c.borrower(spec.Borrower)

	data := spec.ExecutorData
	if data == nil {
		data = []byte{}
	}
	params := flashBurstParams{
		Currency0:    pool.Currency0,
		Currency1:    pool.Currency1,
		Fee:          new(big.Int).SetUint64(uint64(pool.Fee)),
		TickSpacing:  big.NewInt(int64(pool.TickSpacing)),
		Hooks:        pool.Hooks,
		Liquidity:    liquidity,
		Amount0Max:   amount0Max,
		Amount1Max:   amount1Max,
		Executor:     spec.Executor,
		ExecutorData: data,
		Asset:        spec.Asset,
		Amount:       spec.Amount,
		Operator:     operator,
	}
	return c.transact(ctx, borrower, nil, "initiateFlashBurst", params)
}

// CloseBurst submits settleBurst on the manager contract.
func (c *Client) CloseBurst(ctx context.Context, pool domain.PoolKey, minOut0, minOut1 *big.Int) (*types.Receipt, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("ledger: no manager contract bound")
	}
	return c.transact(ctx, c.manager, nil, "settleBurst", toABIPoolKey(pool), minOut0, minOut1)
}

// GetUpdateFee quotes the oracle's fee for the update payload.
func (c *Client) GetUpdateFee(ctx context.Context, update domain.UpdatePayload) (*big.Int, error) {
	if c.oracle == nil {
		return nil, fmt.Errorf("ledger: no oracle contract bound")
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.oracle.Call(opts, &out, "getUpdateFee", [][]byte(update)); err != nil {
		return nil, fmt.Errorf("ledger: getUpdateFee: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("ledger: getUpdateFee returned %d values, want 1", len(out))
	}
	return out[0].(*big.Int), nil
}

// SubmitUpdate pushes the price update on-chain, attaching fee as msg.value.
func (c *Client) SubmitUpdate(ctx context.Context, update domain.UpdatePayload, fee *big.Int) (*types.Receipt, error) {
	if c.oracle == nil {
		return nil, fmt.Errorf("ledger: no oracle contract bound")
	}
	return c.transact(ctx, c.oracle, fee, "updatePriceFeeds", [][]byte(update))
}

func (c *Client) borrower(addr common.Address) *bind.BoundContract {
	c.borrowerMu.Lock()
	defer c.borrowerMu.Unlock()
	if b, ok := c.borrowers[addr]; ok {
		return b
	}
	b := bind.NewBoundContract(addr, borrowerABI, c.eth, c.eth, c.eth)
	c.borrowers[addr] = b
	return b
}

// transact submits one signed transaction and waits for it to mine. Only the
// submission holds the nonce lock; concurrent jobs wait for their receipts
// in parallel.
func (c *Client) transact(ctx context.Context, contract *bind.BoundContract, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	c.txMu.Lock()
	opts := *c.auth
	opts.Context = ctx
	opts.Value = value
	tx, err := contract.Transact(&opts, method, args...)
	c.txMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ledger: submitting %s: %w", method, err)
	}

	c.log.Debug("transaction submitted", "method", method, "tx", tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("ledger: waiting for %s tx %s: %w", method, tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("ledger: %s tx %s: %w", method, tx.Hash(), domain.ErrTxReverted)
	}

	c.log.Info("transaction mined",
		"method", method,
		"tx", tx.Hash().Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed)
	return receipt, nil
}
