package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

func packEvaluated(t *testing.T, mode uint8, jit bool, depeg, conf *big.Int) []byte {
	t.Helper()
	data, err := keeperABI.Events["KeeperEvaluated"].Inputs.NonIndexed().Pack(mode, jit, depeg, conf)
	require.NoError(t, err)
	return data
}

func packStale(t *testing.T, feedID common.Hash) []byte {
	t.Helper()
	data, err := keeperABI.Events["StaleFeedDetected"].Inputs.NonIndexed().Pack([32]byte(feedID))
	require.NoError(t, err)
	return data
}

func TestInterpretReceiptDecodesEvaluated(t *testing.T) {
	poolID := common.HexToHash("0x1234")
	receipt := &types.Receipt{
		Logs: []*types.Log{{
			Topics: []common.Hash{keeperEvaluatedID, poolID},
			Data:   packEvaluated(t, 2, true, big.NewInt(120), big.NewInt(35)),
		}},
	}

	events := InterpretReceipt(receipt)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, EventRiskEvaluated, ev.Kind)
	assert.Equal(t, poolID, ev.PoolID)
	assert.Equal(t, domain.ModeCrisis, ev.Mode)
	assert.True(t, ev.JITTarget)
	assert.Equal(t, big.NewInt(120), ev.DepegBps)
	assert.Equal(t, big.NewInt(35), ev.ConfidenceBps)
}

func TestInterpretReceiptDecodesStaleFeed(t *testing.T) {
	poolID := common.HexToHash("0x1234")
	feedID := common.HexToHash("0xfeed")
	receipt := &types.Receipt{
		Logs: []*types.Log{{
			Topics: []common.Hash{staleFeedDetectedID, poolID},
			Data:   packStale(t, feedID),
		}},
	}

	events := InterpretReceipt(receipt)
	require.Len(t, events, 1)
	assert.Equal(t, EventStaleFeed, events[0].Kind)
	assert.Equal(t, poolID, events[0].PoolID)
	assert.Equal(t, feedID, events[0].FeedID)
}

func TestInterpretReceiptSkipsForeignAndMalformedLogs(t *testing.T) {
	poolID := common.HexToHash("0x1234")
	receipt := &types.Receipt{
		Logs: []*types.Log{
			// Unknown event signature.
			{
				Topics: []common.Hash{common.HexToHash("0xdead"), poolID},
				Data:   []byte{0x01},
			},
			// Recognized signature but truncated data.
			{
				Topics: []common.Hash{keeperEvaluatedID, poolID},
				Data:   []byte{0x01, 0x02},
			},
			// Missing indexed topic.
			{
				Topics: []common.Hash{keeperEvaluatedID},
				Data:   packEvaluated(t, 1, false, big.NewInt(10), big.NewInt(5)),
			},
			// Valid log among the garbage.
			{
				Topics: []common.Hash{keeperEvaluatedID, poolID},
				Data:   packEvaluated(t, 1, false, big.NewInt(10), big.NewInt(5)),
			},
		},
	}

	events := InterpretReceipt(receipt)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ModeAlert, events[0].Mode)
	assert.False(t, events[0].JITTarget)
}

func TestInterpretReceiptNil(t *testing.T) {
	assert.Nil(t, InterpretReceipt(nil))
	assert.Empty(t, InterpretReceipt(&types.Receipt{}))
}
