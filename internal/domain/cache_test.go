package domain

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNopRiskCache(t *testing.T) {
	var cache RiskCache = NopRiskCache{}
	ctx := context.Background()
	pool := common.HexToHash("0xabc")

	require.NoError(t, cache.SetSnapshot(ctx, pool, RiskSnapshot{Mode: ModeCrisis}))
	require.NoError(t, cache.SetBurst(ctx, pool, BurstRecord{Active: true}))
	require.NoError(t, cache.Heartbeat(ctx, "relay-1", time.Now()))

	_, err := cache.GetSnapshot(ctx, pool)
	require.ErrorIs(t, err, ErrNotFound)
}
