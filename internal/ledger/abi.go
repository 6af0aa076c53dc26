package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// poolKeyComponents is the (currency0, currency1, fee, tickSpacing, hooks)
// tuple shared by every contract that addresses a pool.
const poolKeyComponents = `[
      {"internalType": "address", "name": "currency0", "type": "address"},
      {"internalType": "address", "name": "currency1", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "int24", "name": "tickSpacing", "type": "int24"},
      {"internalType": "address", "name": "hooks", "type": "address"}
    ]`

const keeperABIJSON = `[
  {
    "inputs": [
      {"internalType": "struct PoolKey", "name": "key", "type": "tuple", "components": ` + poolKeyComponents + `}
    ],
    "name": "evaluateAndUpdate",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "struct PoolKey", "name": "key", "type": "tuple", "components": ` + poolKeyComponents + `}
    ],
    "name": "getPoolSnapshot",
    "outputs": [
      {"internalType": "struct FeedConfig", "name": "cfg", "type": "tuple", "components": [
        {"internalType": "bytes32", "name": "priceFeedId0", "type": "bytes32"},
        {"internalType": "bytes32", "name": "priceFeedId1", "type": "bytes32"},
        {"internalType": "uint24", "name": "baseFee", "type": "uint24"},
        {"internalType": "uint24", "name": "maxFee", "type": "uint24"},
        {"internalType": "uint24", "name": "minFee", "type": "uint24"}
      ]},
      {"internalType": "struct RiskState", "name": "state", "type": "tuple", "components": [
        {"internalType": "uint8", "name": "mode", "type": "uint8"},
        {"internalType": "bool", "name": "jitLiquidityActive", "type": "bool"},
        {"internalType": "uint256", "name": "lastDepegBps", "type": "uint256"},
        {"internalType": "uint256", "name": "lastConfidenceBps", "type": "uint256"},
        {"internalType": "uint24", "name": "lastOverrideFee", "type": "uint24"},
        {"internalType": "uint256", "name": "reserveBalance", "type": "uint256"},
        {"internalType": "uint256", "name": "totalPenaltyFees", "type": "uint256"},
        {"internalType": "uint256", "name": "totalRebates", "type": "uint256"}
      ]}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": false, "internalType": "uint8", "name": "targetMode", "type": "uint8"},
      {"indexed": false, "internalType": "bool", "name": "jitTarget", "type": "bool"},
      {"indexed": false, "internalType": "uint256", "name": "depegBps", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "confidenceBps", "type": "uint256"}
    ],
    "name": "KeeperEvaluated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "poolId", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "feedId", "type": "bytes32"}
    ],
    "name": "StaleFeedDetected",
    "type": "event"
  }
]`

const oracleABIJSON = `[
  {
    "inputs": [
      {"internalType": "bytes[]", "name": "updateData", "type": "bytes[]"}
    ],
    "name": "getUpdateFee",
    "outputs": [{"internalType": "uint256", "name": "feeAmount", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes[]", "name": "updateData", "type": "bytes[]"}
    ],
    "name": "updatePriceFeeds",
    "outputs": [],
    "stateMutability": "payable",
    "type": "function"
  }
]`

const managerABIJSON = `[
  {
    "inputs": [
      {"internalType": "struct PoolKey", "name": "key", "type": "tuple", "components": ` + poolKeyComponents + `},
      {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"internalType": "uint256", "name": "amount0Max", "type": "uint256"},
      {"internalType": "uint256", "name": "amount1Max", "type": "uint256"},
      {"internalType": "address", "name": "operator", "type": "address"},
      {"internalType": "uint64", "name": "duration", "type": "uint64"}
    ],
    "name": "executeBurst",
    "outputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "struct PoolKey", "name": "key", "type": "tuple", "components": ` + poolKeyComponents + `},
      {"internalType": "uint256", "name": "minOut0", "type": "uint256"},
      {"internalType": "uint256", "name": "minOut1", "type": "uint256"}
    ],
    "name": "settleBurst",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "poolId", "type": "bytes32"}
    ],
    "name": "bursts",
    "outputs": [
      {"internalType": "uint256", "name": "tokenId", "type": "uint256"},
      {"internalType": "address", "name": "funder", "type": "address"},
      {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"internalType": "uint64", "name": "expiry", "type": "uint64"},
      {"internalType": "bool", "name": "active", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const borrowerABIJSON = `[
  {
    "inputs": [
      {"internalType": "struct FlashBurstParams", "name": "params", "type": "tuple", "components": [
        {"internalType": "address", "name": "currency0", "type": "address"},
        {"internalType": "address", "name": "currency1", "type": "address"},
        {"internalType": "uint24", "name": "fee", "type": "uint24"},
        {"internalType": "int24", "name": "tickSpacing", "type": "int24"},
        {"internalType": "address", "name": "hooks", "type": "address"},
        {"internalType": "uint128", "name": "liquidity", "type": "uint128"},
        {"internalType": "uint256", "name": "amount0Max", "type": "uint256"},
        {"internalType": "uint256", "name": "amount1Max", "type": "uint256"},
        {"internalType": "address", "name": "executor", "type": "address"},
        {"internalType": "bytes", "name": "executorData", "type": "bytes"},
        {"internalType": "address", "name": "asset", "type": "address"},
        {"internalType": "uint256", "name": "amount", "type": "uint256"},
        {"internalType": "address", "name": "operator", "type": "address"}
      ]}
    ],
    "name": "initiateFlashBurst",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	keeperABI   = mustParseABI(keeperABIJSON)
	oracleABI   = mustParseABI(oracleABIJSON)
	managerABI  = mustParseABI(managerABIJSON)
	borrowerABI = mustParseABI(borrowerABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("ledger: parsing embedded ABI: " + err.Error())
	}
	return parsed
}
