package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

const (
	snapshotKeyPrefix  = "pegguard:snapshot:"
	burstKeyPrefix     = "pegguard:burst:"
	heartbeatKeyPrefix = "pegguard:heartbeat:"
)

// RiskCache implements domain.RiskCache on Redis. Entries expire after the
// configured TTL so stale state ages out when the agents stop.
type RiskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRiskCache creates a RiskCache with the given entry TTL. A zero TTL
// keeps entries forever.
func NewRiskCache(client *Client, ttl time.Duration) *RiskCache {
	return &RiskCache{rdb: client.Underlying(), ttl: ttl}
}

var _ domain.RiskCache = (*RiskCache)(nil)

// SetSnapshot stores the latest risk snapshot for a pool.
func (c *RiskCache) SetSnapshot(ctx context.Context, poolID common.Hash, snap domain.RiskSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKeyPrefix+poolID.Hex(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot for a pool, or domain.ErrNotFound.
func (c *RiskCache) GetSnapshot(ctx context.Context, poolID common.Hash) (domain.RiskSnapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKeyPrefix+poolID.Hex()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RiskSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.RiskSnapshot{}, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap domain.RiskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.RiskSnapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// SetBurst stores the latest burst record for a pool.
func (c *RiskCache) SetBurst(ctx context.Context, poolID common.Hash, rec domain.BurstRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal burst record: %w", err)
	}
	if err := c.rdb.Set(ctx, burstKeyPrefix+poolID.Hex(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set burst record: %w", err)
	}
	return nil
}

// Heartbeat records the last successful cycle time for a job.
func (c *RiskCache) Heartbeat(ctx context.Context, job string, at time.Time) error {
	if err := c.rdb.Set(ctx, heartbeatKeyPrefix+job, at.UTC().Format(time.RFC3339), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set heartbeat: %w", err)
	}
	return nil
}
