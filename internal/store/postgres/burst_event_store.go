package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// BurstEventStore implements domain.BurstEventStore using PostgreSQL.
type BurstEventStore struct {
	pool *pgxpool.Pool
}

// NewBurstEventStore creates a BurstEventStore backed by the given pool.
func NewBurstEventStore(pool *pgxpool.Pool) *BurstEventStore {
	return &BurstEventStore{pool: pool}
}

var _ domain.BurstEventStore = (*BurstEventStore)(nil)

// Insert records one burst transition.
func (s *BurstEventStore) Insert(ctx context.Context, ev domain.BurstEvent) error {
	const query = `
		INSERT INTO burst_events (
			id, job, pool_id, action, token_id, liquidity, tx_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		ev.ID, ev.Job, ev.PoolID.Hex(), ev.Action,
		ev.TokenID, ev.Liquidity, ev.TxHash, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert burst event: %w", err)
	}
	return nil
}

// ListByPool returns the most recent events for a pool, newest first.
func (s *BurstEventStore) ListByPool(ctx context.Context, poolID common.Hash, limit int) ([]domain.BurstEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, job, pool_id, action, token_id, liquidity, tx_hash, created_at
		FROM burst_events
		WHERE pool_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, poolID.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list burst events: %w", err)
	}
	defer rows.Close()

	var events []domain.BurstEvent
	for rows.Next() {
		var (
			ev  domain.BurstEvent
			pid string
		)
		if err := rows.Scan(
			&ev.ID, &ev.Job, &pid, &ev.Action,
			&ev.TokenID, &ev.Liquidity, &ev.TxHash, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan burst event: %w", err)
		}
		ev.PoolID = common.HexToHash(pid)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate burst events: %w", err)
	}
	return events, nil
}
