package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

type memRunStore struct {
	mu   sync.Mutex
	recs []domain.RunRecord
}

func (s *memRunStore) Insert(ctx context.Context, rec domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memRunStore) ListBefore(ctx context.Context, before time.Time) ([]domain.RunRecord, error) {
	return nil, nil
}

func (s *memRunStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *memRunStore) records() []domain.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RunRecord, len(s.recs))
	copy(out, s.recs)
	return out
}

func TestNewRequiresJobs(t *testing.T) {
	_, err := New(nil, Options{}, slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, domain.ErrNoJobs)
}

func TestSchedulerRunsImmediately(t *testing.T) {
	store := &memRunStore{}
	ran := make(chan struct{})
	var once sync.Once

	jobs := []Job{{
		Label:    "relay-1",
		Kind:     domain.JobRelay,
		PoolID:   common.HexToHash("0x01"),
		Interval: time.Hour,
		Cycle: func(ctx context.Context) error {
			once.Do(func() { close(ran) })
			return nil
		},
	}}

	sched, err := New(jobs, Options{RunStore: store, RetryAttempts: 0, RetryDelay: time.Millisecond}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not run immediately")
	}
	cancel()
	require.NoError(t, <-done)

	recs := store.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "relay-1", recs[0].Job)
	assert.True(t, recs[0].Success)
	assert.Equal(t, 1, recs[0].Attempts)
	assert.NotEmpty(t, recs[0].ID)
}

func TestSchedulerRecordsFailureAndContinues(t *testing.T) {
	store := &memRunStore{}
	calls := 0
	secondCycle := make(chan struct{})
	var once sync.Once

	jobs := []Job{{
		Label:    "burst-1",
		Kind:     domain.JobBurst,
		Interval: 20 * time.Millisecond,
		Cycle: func(ctx context.Context) error {
			calls++
			if calls <= 2 {
				return errors.New("revert")
			}
			once.Do(func() { close(secondCycle) })
			return nil
		},
	}}

	sched, err := New(jobs, Options{RunStore: store, RetryAttempts: 1, RetryDelay: time.Millisecond}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case <-secondCycle:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not recover after a failed cycle")
	}
	cancel()
	require.NoError(t, <-done)

	recs := store.records()
	require.GreaterOrEqual(t, len(recs), 2)
	assert.False(t, recs[0].Success)
	assert.Equal(t, 2, recs[0].Attempts)
	assert.NotEmpty(t, recs[0].Error)
	assert.True(t, recs[1].Success)
}

func TestSchedulerDropsOverlappingTicks(t *testing.T) {
	var mu sync.Mutex
	running := 0
	maxRunning := 0

	jobs := []Job{{
		Label:    "slow",
		Kind:     domain.JobRelay,
		Interval: 5 * time.Millisecond,
		Cycle: func(ctx context.Context) error {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(25 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		},
	}}

	sched, err := New(jobs, Options{RetryDelay: time.Millisecond}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, sched.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRunning, "cycles for one job must never overlap")
}
