package db

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
)

// openDuckDB opens a DuckDB file, or an in-memory database for an empty path.
func openDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}
	return db, nil
}

var duckdbSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS samples_id_seq START 1`,
	`CREATE SEQUENCE IF NOT EXISTS timeline_cards_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS samples (
		id BIGINT PRIMARY KEY DEFAULT nextval('samples_id_seq'),
		captured_at BIGINT NOT NULL,
		day VARCHAR NOT NULL,
		media_ref VARCHAR NOT NULL,
		media_size BIGINT NOT NULL DEFAULT 0,
		window_title VARCHAR NOT NULL DEFAULT '',
		process_name VARCHAR NOT NULL DEFAULT '',
		status VARCHAR NOT NULL DEFAULT 'completed'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_captured_at ON samples(captured_at)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_day ON samples(day)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id VARCHAR PRIMARY KEY,
		day VARCHAR NOT NULL,
		start_at BIGINT NOT NULL,
		end_at BIGINT NOT NULL,
		status VARCHAR NOT NULL,
		sample_count INTEGER NOT NULL DEFAULT 0,
		error_message VARCHAR NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS timeline_cards (
		id BIGINT PRIMARY KEY DEFAULT nextval('timeline_cards_id_seq'),
		day VARCHAR NOT NULL,
		batch_id VARCHAR NOT NULL DEFAULT '',
		start_time VARCHAR NOT NULL,
		end_time VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		summary VARCHAR NOT NULL DEFAULT '',
		category VARCHAR NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_timeline_cards_day ON timeline_cards(day)`,
	`CREATE TABLE IF NOT EXISTS daily_summaries (
		day VARCHAR PRIMARY KEY,
		summary VARCHAR NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
}
