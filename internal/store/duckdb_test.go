package store

import (
	"context"
	"testing"
	"time"

	"github.com/strrl/dayflow/internal/db"
	"github.com/strrl/dayflow/internal/timeline"
)

func TestDuckDBEngine(t *testing.T) {
	s, err := Open(db.DriverDuckDB, "", WithLocation(time.UTC), WithFileRemover(func(string) error { return nil }))
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	first := insert(t, s, day0, "a.jpg", 10)
	second := insert(t, s, day0.Add(time.Minute), "b.jpg", 10)
	if second <= first {
		t.Fatalf("ids not monotonic: %d then %d", first, second)
	}

	cards := []timeline.Card{{Start: "09:00", End: "09:30", Title: "Work", Category: timeline.CategoryCoding}}
	if err := s.ReplaceCardsForDay(ctx, "2026-03-02", "b1", cards, "one"); err != nil {
		t.Fatalf("ReplaceCardsForDay: %v", err)
	}
	if err := s.ReplaceCardsForDay(ctx, "2026-03-02", "b2", cards, "two"); err != nil {
		t.Fatalf("ReplaceCardsForDay: %v", err)
	}
	got, err := s.CardsForDay(ctx, "2026-03-02")
	if err != nil {
		t.Fatalf("CardsForDay: %v", err)
	}
	if len(got) != 1 || got[0].BatchID != "b2" {
		t.Fatalf("cards = %+v", got)
	}
	summary, _ := s.DailySummary(ctx, "2026-03-02")
	if summary != "two" {
		t.Errorf("summary = %q, want two", summary)
	}

	if err := s.SetSetting(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if v, _ := s.GetSetting(ctx, "k", ""); v != "v2" {
		t.Errorf("setting = %q, want v2", v)
	}

	removed, err := s.EnforceLimit(ctx, 10)
	if err != nil {
		t.Fatalf("EnforceLimit: %v", err)
	}
	if removed.Samples != 1 {
		t.Errorf("removed %d samples, want 1", removed.Samples)
	}
}
