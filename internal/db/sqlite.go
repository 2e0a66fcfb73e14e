package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite requires a database path")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}
	return db, nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		captured_at INTEGER NOT NULL,
		day TEXT NOT NULL,
		media_ref TEXT NOT NULL,
		media_size INTEGER NOT NULL DEFAULT 0,
		window_title TEXT NOT NULL DEFAULT '',
		process_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'completed'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_captured_at ON samples(captured_at)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_day ON samples(day)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		sample_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_day ON batches(day)`,
	`CREATE TABLE IF NOT EXISTS timeline_cards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		day TEXT NOT NULL,
		batch_id TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_timeline_cards_day ON timeline_cards(day)`,
	`CREATE TABLE IF NOT EXISTS daily_summaries (
		day TEXT PRIMARY KEY,
		summary TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}
