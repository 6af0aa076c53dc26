package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ domain.RunStore = (*RunStore)(nil)

// Insert records one completed cycle.
func (s *RunStore) Insert(ctx context.Context, rec domain.RunRecord) error {
	const query = `
		INSERT INTO run_history (
			id, job, kind, pool_id, success, attempts, error,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Job, string(rec.Kind), rec.PoolID.Hex(),
		rec.Success, rec.Attempts, rec.Error,
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run record: %w", err)
	}
	return nil
}

// ListBefore returns all runs finished before the cutoff, oldest first.
func (s *RunStore) ListBefore(ctx context.Context, before time.Time) ([]domain.RunRecord, error) {
	const query = `
		SELECT id, job, kind, pool_id, success, attempts, error,
			started_at, finished_at
		FROM run_history
		WHERE finished_at < $1
		ORDER BY finished_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	recs, err := scanRunRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan runs: %w", err)
	}
	return recs, nil
}

// DeleteBefore removes runs finished before the cutoff, returning the count.
func (s *RunStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM run_history WHERE finished_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRunRows(rows pgx.Rows) ([]domain.RunRecord, error) {
	var recs []domain.RunRecord
	for rows.Next() {
		var (
			rec    domain.RunRecord
			kind   string
			poolID string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Job, &kind, &poolID,
			&rec.Success, &rec.Attempts, &rec.Error,
			&rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		rec.Kind = domain.JobKind(kind)
		rec.PoolID = common.HexToHash(poolID)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
