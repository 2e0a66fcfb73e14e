package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/strrl/dayflow/internal/timeline"
)

// ReplaceCardsForDay swaps the full card set and summary for day in one
// transaction. Readers see either the previous set or the new one.
func (s *Store) ReplaceCardsForDay(ctx context.Context, day, batchID string, cards []timeline.Card, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, "replace cards", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_cards WHERE day = ?`, day); err != nil {
			return fmt.Errorf("delete cards: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO timeline_cards (day, batch_id, start_time, end_time, title, summary, category)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, card := range cards {
			if _, err := stmt.ExecContext(ctx, day, batchID, card.Start, card.End,
				card.Title, card.Summary, string(card.Category)); err != nil {
				return fmt.Errorf("insert card: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_summaries (day, summary, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (day) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at
		`, day, summary, toNanos(s.now())); err != nil {
			return fmt.Errorf("upsert summary: %w", err)
		}
		return nil
	})
}

// CardsForDay returns the day's cards ordered by start time.
func (s *Store) CardsForDay(ctx context.Context, day string) ([]timeline.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, day, batch_id, start_time, end_time, title, summary, category
		FROM timeline_cards
		WHERE day = ?
		ORDER BY start_time ASC, id ASC
	`, day)
	if err != nil {
		return nil, wrap("cards for day", fmt.Errorf("query cards: %w", err))
	}
	defer rows.Close()

	var cards []timeline.Card
	for rows.Next() {
		var c timeline.Card
		var category string
		if err := rows.Scan(&c.ID, &c.Day, &c.BatchID, &c.Start, &c.End, &c.Title, &c.Summary, &category); err != nil {
			return nil, wrap("cards for day", fmt.Errorf("scan card: %w", err))
		}
		c.Category = timeline.Category(category)
		cards = append(cards, c)
	}
	return cards, wrap("cards for day", rows.Err())
}

// DailySummary returns the stored summary for day, or "" if none exists.
func (s *Store) DailySummary(ctx context.Context, day string) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM daily_summaries WHERE day = ?`, day).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrap("daily summary", err)
	}
	return summary, nil
}
