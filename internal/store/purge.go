package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Removal reports what a purge deleted.
type Removal struct {
	Samples int
	Bytes   int64
}

type victim struct {
	id    int64
	ref   string
	bytes int64
}

// EnforceLimit deletes the oldest samples and their media until the total
// media size is at most maxBytes. maxBytes <= 0 disables the limit. Samples
// inserted after the scan starts are never selected.
func (s *Store) EnforceLimit(ctx context.Context, maxBytes int64) (Removal, error) {
	if maxBytes <= 0 {
		return Removal{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total, err := s.TotalMediaBytes(ctx)
	if err != nil {
		return Removal{}, err
	}
	if total <= maxBytes {
		return Removal{}, nil
	}

	var boundary sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM samples`).Scan(&boundary); err != nil {
		return Removal{}, wrap("enforce limit", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, media_ref, media_size
		FROM samples
		WHERE id <= ?
		ORDER BY captured_at ASC, id ASC
	`, boundary.Int64)
	if err != nil {
		return Removal{}, wrap("enforce limit", fmt.Errorf("query samples: %w", err))
	}

	excess := total - maxBytes
	var victims []victim
	var freed int64
	for rows.Next() && freed < excess {
		var v victim
		if err := rows.Scan(&v.id, &v.ref, &v.bytes); err != nil {
			rows.Close()
			return Removal{}, wrap("enforce limit", fmt.Errorf("scan sample: %w", err))
		}
		victims = append(victims, v)
		freed += v.bytes
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Removal{}, wrap("enforce limit", err)
	}
	rows.Close()

	return s.deleteVictims(ctx, "enforce limit", victims)
}

// PurgeBefore deletes every sample captured before cutoff and its media.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (Removal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, media_ref, media_size
		FROM samples
		WHERE captured_at < ?
		ORDER BY captured_at ASC, id ASC
	`, toNanos(cutoff))
	if err != nil {
		return Removal{}, wrap("purge before", fmt.Errorf("query samples: %w", err))
	}

	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.id, &v.ref, &v.bytes); err != nil {
			rows.Close()
			return Removal{}, wrap("purge before", fmt.Errorf("scan sample: %w", err))
		}
		victims = append(victims, v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Removal{}, wrap("purge before", err)
	}
	rows.Close()

	return s.deleteVictims(ctx, "purge before", victims)
}

// deleteVictims removes rows in one transaction, then their files. A file
// that is already gone is fine. Other file errors are returned after every
// file has been tried; the rows stay deleted.
func (s *Store) deleteVictims(ctx context.Context, op string, victims []victim) (Removal, error) {
	if len(victims) == 0 {
		return Removal{}, nil
	}

	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM samples WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, v := range victims {
			if _, err := stmt.ExecContext(ctx, v.id); err != nil {
				return fmt.Errorf("delete sample %d: %w", v.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return Removal{}, err
	}

	var removed Removal
	var fileErrs []error
	for _, v := range victims {
		removed.Samples++
		removed.Bytes += v.bytes
		if err := s.removeFile(v.ref); err != nil {
			fileErrs = append(fileErrs, err)
		}
	}
	return removed, wrap(op, errors.Join(fileErrs...))
}

func removeMedia(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove media %s: %w", path, err)
	}
	return nil
}
