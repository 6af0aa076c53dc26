package jit

import (
	"context"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

func testPool(t *testing.T) domain.PoolKey {
	t.Helper()
	pool, err := domain.NewPoolKey(
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		0, 60,
		"0x3333333333333333333333333333333333333333",
	)
	require.NoError(t, err)
	return pool
}

func testJob(t *testing.T) domain.BurstJob {
	return domain.BurstJob{
		Label:         "burst-1",
		Pool:          testPool(t),
		Liquidity:     big.NewInt(1_000_000),
		Amount0Max:    big.NewInt(500),
		Amount1Max:    big.NewInt(600),
		Duration:      900,
		ModeThreshold: domain.ModeCrisis,
		SettleBuffer:  5 * time.Second,
		Interval:      45 * time.Second,
	}
}

func TestDecide(t *testing.T) {
	buffer := 5 * time.Second

	cases := []struct {
		name      string
		mode      domain.Mode
		threshold domain.Mode
		active    bool
		expiry    uint64
		now       int64
		want      Action
	}{
		{"calm idle", domain.ModeCalm, domain.ModeCrisis, false, 0, 1000, ActionNone},
		{"alert below threshold", domain.ModeAlert, domain.ModeCrisis, false, 0, 1000, ActionNone},
		{"crisis opens", domain.ModeCrisis, domain.ModeCrisis, false, 0, 1000, ActionOpen},
		{"alert threshold opens at alert", domain.ModeAlert, domain.ModeAlert, false, 0, 1000, ActionOpen},
		{"crisis while active holds", domain.ModeCrisis, domain.ModeCrisis, true, 2000, 1000, ActionNone},
		{"active within buffer holds", domain.ModeCalm, domain.ModeCrisis, true, 1000, 1004, ActionNone},
		{"active at buffer boundary holds", domain.ModeCalm, domain.ModeCrisis, true, 1000, 1005, ActionNone},
		{"active past buffer closes", domain.ModeCalm, domain.ModeCrisis, true, 1000, 1006, ActionClose},
		{"crisis past buffer still closes", domain.ModeCrisis, domain.ModeCrisis, true, 1000, 1006, ActionClose},
		{"inactive never closes", domain.ModeCalm, domain.ModeCrisis, false, 1, 1006, ActionNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := domain.RiskSnapshot{Mode: tc.mode}
			rec := domain.BurstRecord{Active: tc.active, Expiry: tc.expiry}
			got := Decide(snap, rec, time.Unix(tc.now, 0), tc.threshold, buffer)
			assert.Equal(t, tc.want, got)
		})
	}
}

// fakeLedger counts every write and lets tests script the read state.
type fakeLedger struct {
	snap domain.RiskSnapshot
	rec  domain.BurstRecord

	openCalls      int
	openFlashCalls int
	closeCalls     int

	lastLiquidity  *big.Int
	lastAmount0Max *big.Int
	lastAmount1Max *big.Int
	lastDuration   uint64
	lastFlash      domain.FlashFundingSpec
}

func receipt() *types.Receipt {
	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.HexToHash("0xdead"),
	}
}

func (f *fakeLedger) ReadRiskSnapshot(ctx context.Context, pool domain.PoolKey) (domain.RiskSnapshot, error) {
	return f.snap, nil
}

func (f *fakeLedger) ReadBurstRecord(ctx context.Context, poolID common.Hash) (domain.BurstRecord, error) {
	return f.rec, nil
}

func (f *fakeLedger) TriggerEvaluation(ctx context.Context, pool domain.PoolKey) (*types.Receipt, error) {
	return receipt(), nil
}

func (f *fakeLedger) OpenBurst(ctx context.Context, pool domain.PoolKey, liquidity, amount0Max, amount1Max *big.Int, operator common.Address, duration uint64) (*types.Receipt, error) {
	f.openCalls++
	f.lastLiquidity = liquidity
	f.lastAmount0Max = amount0Max
	f.lastAmount1Max = amount1Max
	f.lastDuration = duration
	return receipt(), nil
}

func (f *fakeLedger) OpenFlashFundedBurst(ctx context.Context, pool domain.PoolKey, liquidity, amount0Max, amount1Max *big.Int, spec domain.FlashFundingSpec, operator common.Address) (*types.Receipt, error) {
	f.openFlashCalls++
	f.lastLiquidity = liquidity
	f.lastFlash = spec
	return receipt(), nil
}

func (f *fakeLedger) CloseBurst(ctx context.Context, pool domain.PoolKey, minOut0, minOut1 *big.Int) (*types.Receipt, error) {
	f.closeCalls++
	return receipt(), nil
}

func (f *fakeLedger) GetUpdateFee(ctx context.Context, update domain.UpdatePayload) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeLedger) SubmitUpdate(ctx context.Context, update domain.UpdatePayload, fee *big.Int) (*types.Receipt, error) {
	return receipt(), nil
}

func newTestController(ledger *fakeLedger) *Controller {
	return NewController(ledger, nil, nil, nil, slog.New(slog.DiscardHandler))
}

func TestRunCycleOpensOnCrisis(t *testing.T) {
	ledger := &fakeLedger{
		snap: domain.RiskSnapshot{Mode: domain.ModeCrisis},
		rec:  domain.BurstRecord{Active: false, TokenID: big.NewInt(0), Liquidity: big.NewInt(0)},
	}
	c := newTestController(ledger)
	job := testJob(t)

	err := c.RunCycle(context.Background(), job, common.HexToAddress("0x4444444444444444444444444444444444444444"))
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.openCalls)
	assert.Equal(t, 0, ledger.openFlashCalls)
	assert.Equal(t, 0, ledger.closeCalls)
	assert.Equal(t, job.Liquidity, ledger.lastLiquidity)
	assert.Equal(t, job.Amount0Max, ledger.lastAmount0Max)
	assert.Equal(t, job.Amount1Max, ledger.lastAmount1Max)
	assert.Equal(t, job.Duration, ledger.lastDuration)
}

func TestRunCycleFlashPath(t *testing.T) {
	ledger := &fakeLedger{
		snap: domain.RiskSnapshot{Mode: domain.ModeCrisis},
		rec:  domain.BurstRecord{Active: false, TokenID: big.NewInt(0), Liquidity: big.NewInt(0)},
	}
	c := newTestController(ledger)
	job := testJob(t)
	job.Flash = &domain.FlashFundingSpec{
		Borrower: common.HexToAddress("0x5555555555555555555555555555555555555555"),
		Asset:    common.HexToAddress("0x6666666666666666666666666666666666666666"),
		Amount:   big.NewInt(42),
	}

	err := c.RunCycle(context.Background(), job, common.Address{})
	require.NoError(t, err)

	assert.Equal(t, 0, ledger.openCalls)
	assert.Equal(t, 1, ledger.openFlashCalls)
	assert.Equal(t, job.Flash.Borrower, ledger.lastFlash.Borrower)
	assert.Equal(t, job.Flash.Amount, ledger.lastFlash.Amount)
}

func TestRunCycleNeverOpensWhileActive(t *testing.T) {
	ledger := &fakeLedger{
		snap: domain.RiskSnapshot{Mode: domain.ModeCrisis},
		rec: domain.BurstRecord{
			Active:    true,
			TokenID:   big.NewInt(7),
			Liquidity: big.NewInt(1),
			Expiry:    uint64(time.Now().Unix() + 600),
		},
	}
	c := newTestController(ledger)

	err := c.RunCycle(context.Background(), testJob(t), common.Address{})
	require.NoError(t, err)

	assert.Equal(t, 0, ledger.openCalls)
	assert.Equal(t, 0, ledger.openFlashCalls)
	assert.Equal(t, 0, ledger.closeCalls)
}

func TestRunCycleSettlesExpiredBurst(t *testing.T) {
	ledger := &fakeLedger{
		snap: domain.RiskSnapshot{Mode: domain.ModeCalm},
		rec: domain.BurstRecord{
			Active:    true,
			TokenID:   big.NewInt(7),
			Liquidity: big.NewInt(1),
			Expiry:    1000,
		},
	}
	c := newTestController(ledger)
	c.now = func() time.Time { return time.Unix(1006, 0) }

	err := c.RunCycle(context.Background(), testJob(t), common.Address{})
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.closeCalls)
	assert.Equal(t, 0, ledger.openCalls)
}

func TestRunCycleHoldsWithinBuffer(t *testing.T) {
	ledger := &fakeLedger{
		snap: domain.RiskSnapshot{Mode: domain.ModeCalm},
		rec: domain.BurstRecord{
			Active:    true,
			TokenID:   big.NewInt(7),
			Liquidity: big.NewInt(1),
			Expiry:    1000,
		},
	}
	c := newTestController(ledger)
	c.now = func() time.Time { return time.Unix(1004, 0) }

	err := c.RunCycle(context.Background(), testJob(t), common.Address{})
	require.NoError(t, err)

	assert.Equal(t, 0, ledger.closeCalls)
	assert.Equal(t, 0, ledger.openCalls)
}
