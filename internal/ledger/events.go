package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// EventKind identifies a decoded keeper event.
type EventKind string

const (
	EventRiskEvaluated EventKind = "risk_evaluated"
	EventStaleFeed     EventKind = "stale_feed"
)

// DecodedEvent is a keeper contract event lifted out of a receipt.
type DecodedEvent struct {
	Kind   EventKind
	PoolID common.Hash

	// Populated for risk_evaluated.
	Mode          domain.Mode
	JITTarget     bool
	DepegBps      *big.Int
	ConfidenceBps *big.Int

	// Populated for stale_feed.
	FeedID common.Hash
}

var (
	keeperEvaluatedID   = keeperABI.Events["KeeperEvaluated"].ID
	staleFeedDetectedID = keeperABI.Events["StaleFeedDetected"].ID
)

// InterpretReceipt extracts KeeperEvaluated and StaleFeedDetected events
// from a mined receipt. Logs from other contracts and logs that fail to
// decode are skipped.
func InterpretReceipt(receipt *types.Receipt) []DecodedEvent {
	if receipt == nil {
		return nil
	}

	var events []DecodedEvent
	for _, lg := range receipt.Logs {
		if lg == nil || len(lg.Topics) < 2 {
			continue
		}
		switch lg.Topics[0] {
		case keeperEvaluatedID:
			vals, err := keeperABI.Events["KeeperEvaluated"].Inputs.NonIndexed().Unpack(lg.Data)
			if err != nil || len(vals) != 4 {
				continue
			}
			mode, ok0 := vals[0].(uint8)
			jit, ok1 := vals[1].(bool)
			depeg, ok2 := vals[2].(*big.Int)
			conf, ok3 := vals[3].(*big.Int)
			if !ok0 || !ok1 || !ok2 || !ok3 {
				continue
			}
			events = append(events, DecodedEvent{
				Kind:          EventRiskEvaluated,
				PoolID:        lg.Topics[1],
				Mode:          domain.Mode(mode),
				JITTarget:     jit,
				DepegBps:      depeg,
				ConfidenceBps: conf,
			})
		case staleFeedDetectedID:
			vals, err := keeperABI.Events["StaleFeedDetected"].Inputs.NonIndexed().Unpack(lg.Data)
			if err != nil || len(vals) != 1 {
				continue
			}
			feed, ok := vals[0].([32]byte)
			if !ok {
				continue
			}
			events = append(events, DecodedEvent{
				Kind:   EventStaleFeed,
				PoolID: lg.Topics[1],
				FeedID: common.Hash(feed),
			})
		}
	}
	return events
}
