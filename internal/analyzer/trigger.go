package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/strrl/dayflow/internal/ai"
	"github.com/strrl/dayflow/internal/timeline"
)

// Pending reports whether day has completed samples newer than the end of
// the latest batch. Samples from later days do not count.
func (a *Analyzer) Pending(ctx context.Context, day string) (bool, error) {
	batches, err := a.store.BatchesForDay(ctx, day)
	if err != nil {
		return false, err
	}

	since, err := timeline.ParseDay(day, a.loc)
	if err != nil {
		return false, err
	}
	end := since.AddDate(0, 0, 1)
	for _, b := range batches {
		if next := b.EndAt.Add(time.Nanosecond); next.After(since) {
			since = next
		}
	}

	n, err := a.store.CountCompleted(ctx, since, end)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Tick is the periodic trigger: it analyzes today when new samples arrived.
// Without a provider it does nothing.
func (a *Analyzer) Tick(ctx context.Context) error {
	if _, err := a.provider(ctx); errors.Is(err, ai.ErrDisabled) {
		return nil
	}

	day := timeline.DayKey(a.now(), a.loc)
	pending, err := a.Pending(ctx, day)
	if err != nil || !pending {
		return err
	}

	_, err = a.Analyze(ctx, day)
	if errors.Is(err, ErrNoData) {
		return nil
	}
	return err
}
