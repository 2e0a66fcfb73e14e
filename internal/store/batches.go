package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/strrl/dayflow/internal/timeline"
)

const batchColumns = `id, day, start_at, end_at, status, sample_count, error_message, created_at, updated_at`

// CreateBatch records a new batch. Status defaults to pending.
func (s *Store) CreateBatch(ctx context.Context, b timeline.Batch) error {
	if b.Status == "" {
		b.Status = timeline.BatchPending
	}
	now := toNanos(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Day, toNanos(b.StartAt), toNanos(b.EndAt), string(b.Status), b.SampleCount, b.Error, now, now)
	return wrap("create batch", err)
}

// FinishBatch moves a batch to a terminal status.
func (s *Store) FinishBatch(ctx context.Context, id string, status timeline.BatchStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE batches SET status = ?, error_message = ?, updated_at = ? WHERE id = ?
	`, string(status), errMsg, toNanos(s.now()), id)
	if err != nil {
		return wrap("finish batch", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wrap("finish batch", fmt.Errorf("batch %s not found", id))
	}
	return nil
}

// Batch returns the batch with id, or nil if it does not exist.
func (s *Store) Batch(ctx context.Context, id string) (*timeline.Batch, error) {
	batches, err := s.queryBatches(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, wrap("batch", err)
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

// BatchesForDay returns the day's batches, newest first.
func (s *Store) BatchesForDay(ctx context.Context, day string) ([]timeline.Batch, error) {
	batches, err := s.queryBatches(ctx, `WHERE day = ? ORDER BY created_at DESC`, day)
	return batches, wrap("batches for day", err)
}

func (s *Store) queryBatches(ctx context.Context, where string, args ...any) ([]timeline.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []timeline.Batch
	for rows.Next() {
		var b timeline.Batch
		var startAt, endAt, createdAt, updatedAt int64
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&b.ID, &b.Day, &startAt, &endAt, &status, &b.SampleCount,
			&errMsg, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.StartAt = s.fromNanos(startAt)
		b.EndAt = s.fromNanos(endAt)
		b.CreatedAt = s.fromNanos(createdAt)
		b.UpdatedAt = s.fromNanos(updatedAt)
		b.Status = timeline.BatchStatus(status)
		b.Error = errMsg.String
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
