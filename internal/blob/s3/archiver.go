package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pegguardlabs/pegguardd/internal/domain"
)

// Archiver moves old cycle run history out of the primary store: records
// older than the retention window are serialized to JSONL, uploaded, and
// then deleted. Deletion only happens after a successful upload.
type Archiver struct {
	writer    *Writer
	runs      domain.RunStore
	retention time.Duration
	log       *slog.Logger
}

// NewArchiver creates an Archiver that keeps retention worth of history in
// the primary store.
func NewArchiver(writer *Writer, runs domain.RunStore, retention time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		runs:      runs,
		retention: retention,
		log:       logger.With("component", "archiver"),
	}
}

// archivedRun is the JSONL row format for an archived cycle run.
type archivedRun struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	Kind       string    `json:"kind"`
	PoolID     string    `json:"pool_id"`
	Success    bool      `json:"success"`
	Attempts   int       `json:"attempts"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ArchiveRuns archives and prunes every run older than the retention window.
// It returns the number of archived records.
func (a *Archiver) ArchiveRuns(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-a.retention)

	recs, err := a.runs.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: listing runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		row := archivedRun{
			ID:         rec.ID,
			Job:        rec.Job,
			Kind:       string(rec.Kind),
			PoolID:     rec.PoolID.Hex(),
			Success:    rec.Success,
			Attempts:   rec.Attempts,
			Error:      rec.Error,
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
		}
		if err := enc.Encode(row); err != nil {
			return 0, fmt.Errorf("s3blob: encoding run %s: %w", rec.ID, err)
		}
	}

	key := fmt.Sprintf("runs/%s/run_history_%s.jsonl",
		now.UTC().Format("2006/01"), now.UTC().Format("20060102T150405Z"))
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return 0, err
	}

	deleted, err := a.runs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return len(recs), fmt.Errorf("s3blob: pruning archived runs: %w", err)
	}

	a.log.Info("run history archived",
		"key", key,
		"archived", len(recs),
		"pruned", deleted)
	return len(recs), nil
}

// RunLoop archives on the given interval until ctx is cancelled. Failures
// are logged and retried on the next tick.
func (a *Archiver) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := a.ArchiveRuns(ctx, time.Now()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.log.Error("archive pass failed", "error", err)
		}
	}
}
