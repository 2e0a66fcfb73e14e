package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetSetting returns the stored value for key, or def when it is unset.
func (s *Store) GetSetting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, wrap("get setting", fmt.Errorf("%s: %w", key, err))
	}
	return value, nil
}

// SetSetting stores value for key. Last write wins.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return wrap("set setting", fmt.Errorf("%s: %w", key, err))
	}
	return nil
}

// Settings returns every stored setting.
func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, wrap("settings", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, wrap("settings", fmt.Errorf("scan setting: %w", err))
		}
		out[k] = v
	}
	return out, wrap("settings", rows.Err())
}

// SeedSettings stores defaults for keys that have no value yet. Existing
// values are kept.
func (s *Store) SeedSettings(ctx context.Context, defaults map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, "seed settings", func(tx *sql.Tx) error {
		for key, value := range defaults {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value) VALUES (?, ?)
				ON CONFLICT (key) DO NOTHING
			`, key, value); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
		return nil
	})
}
