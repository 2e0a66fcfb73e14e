package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/strrl/dayflow/internal/timeline"
)

const sampleColumns = `id, captured_at, media_ref, media_size, window_title, process_name, status`

// InsertSample persists a sample and returns its id. An empty status is
// stored as completed.
func (s *Store) InsertSample(ctx context.Context, sample timeline.Sample) (int64, error) {
	status := sample.Status
	if status == "" {
		status = timeline.SampleCompleted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO samples (captured_at, day, media_ref, media_size, window_title, process_name, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, toNanos(sample.CapturedAt), timeline.DayKey(sample.CapturedAt, s.loc), sample.MediaRef,
		sample.MediaSize, sample.WindowTitle, sample.ProcessName, string(status)).Scan(&id)
	if err != nil {
		return 0, wrap("insert sample", err)
	}
	return id, nil
}

// SamplesForDay returns every sample captured on day, oldest first.
func (s *Store) SamplesForDay(ctx context.Context, day string) ([]timeline.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sampleColumns+`
		FROM samples
		WHERE day = ?
		ORDER BY captured_at ASC, id ASC
	`, day)
	if err != nil {
		return nil, wrap("samples for day", fmt.Errorf("query samples: %w", err))
	}
	defer rows.Close()

	samples, err := s.scanSamples(rows)
	return samples, wrap("samples for day", err)
}

// CompletedSamples returns completed samples with from <= captured_at < to,
// oldest first.
func (s *Store) CompletedSamples(ctx context.Context, from, to time.Time) ([]timeline.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sampleColumns+`
		FROM samples
		WHERE captured_at >= ? AND captured_at < ? AND status = ?
		ORDER BY captured_at ASC, id ASC
	`, toNanos(from), toNanos(to), string(timeline.SampleCompleted))
	if err != nil {
		return nil, wrap("completed samples", fmt.Errorf("query samples: %w", err))
	}
	defer rows.Close()

	samples, err := s.scanSamples(rows)
	return samples, wrap("completed samples", err)
}

// LatestSample returns the most recently captured sample, or nil if there
// are none.
func (s *Store) LatestSample(ctx context.Context) (*timeline.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sampleColumns+`
		FROM samples
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, wrap("latest sample", fmt.Errorf("query samples: %w", err))
	}
	defer rows.Close()

	samples, err := s.scanSamples(rows)
	if err != nil {
		return nil, wrap("latest sample", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return &samples[0], nil
}

// CountCompleted counts completed samples with from <= captured_at < to.
func (s *Store) CountCompleted(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM samples WHERE captured_at >= ? AND captured_at < ? AND status = ?
	`, toNanos(from), toNanos(to), string(timeline.SampleCompleted)).Scan(&n)
	if err != nil {
		return 0, wrap("count samples", err)
	}
	return n, nil
}

// TotalMediaBytes sums media_size over all stored samples.
func (s *Store) TotalMediaBytes(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT SUM(media_size) FROM samples`).Scan(&total); err != nil {
		return 0, wrap("total media bytes", err)
	}
	return total.Int64, nil
}

func (s *Store) scanSamples(rows *sql.Rows) ([]timeline.Sample, error) {
	var samples []timeline.Sample
	for rows.Next() {
		var sample timeline.Sample
		var capturedAt int64
		var status string
		if err := rows.Scan(&sample.ID, &capturedAt, &sample.MediaRef, &sample.MediaSize,
			&sample.WindowTitle, &sample.ProcessName, &status); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.CapturedAt = s.fromNanos(capturedAt)
		sample.Status = timeline.SampleStatus(status)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
