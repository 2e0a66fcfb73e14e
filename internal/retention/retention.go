// Package retention keeps sample media under the configured byte budget and
// sweeps samples older than the retention window.
package retention

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/observability"
	"github.com/strrl/dayflow/internal/store"
)

const (
	KeyStorageLimitGB = "storage_limit_gb"
	KeyAutoCleanup    = "auto_cleanup"
	KeyRetentionDays  = "retention_days"
	KeyLastCleanupAt  = "last_cleanup_at"

	// AgeSweepEvery spaces out age-based sweeps.
	AgeSweepEvery = 24 * time.Hour

	ReasonLimit = "limit"
	ReasonAge   = "age"

	bytesPerGB = 1 << 30
)

type Store interface {
	EnforceLimit(ctx context.Context, maxBytes int64) (store.Removal, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (store.Removal, error)
	GetSetting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

type Publisher interface {
	Publish(e events.Event)
}

type Retention struct {
	store  Store
	bus    Publisher
	logger *observability.Logger
	now    func() time.Time
}

type Option func(*Retention)

func WithPublisher(p Publisher) Option {
	return func(r *Retention) { r.bus = p }
}

func WithLogger(l *observability.Logger) Option {
	return func(r *Retention) { r.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Retention) {
		if now != nil {
			r.now = now
		}
	}
}

func New(s Store, opts ...Option) *Retention {
	r := &Retention{store: s, logger: observability.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enforce applies maxBytes. A non-positive budget disables deletion.
func (r *Retention) Enforce(ctx context.Context, maxBytes int64) (store.Removal, error) {
	removed, err := r.store.EnforceLimit(ctx, maxBytes)
	r.report(ReasonLimit, removed, err)
	return removed, err
}

// PurgeOlderThan deletes samples captured more than days days ago.
// days <= 0 disables the sweep.
func (r *Retention) PurgeOlderThan(ctx context.Context, days int) (store.Removal, error) {
	if days <= 0 {
		return store.Removal{}, nil
	}
	cutoff := r.now().Add(-time.Duration(days) * 24 * time.Hour)
	removed, err := r.store.PurgeBefore(ctx, cutoff)
	r.report(ReasonAge, removed, err)
	return removed, err
}

// Sweep is the periodic task. It enforces the byte budget from settings and
// runs the age sweep at most once per AgeSweepEvery.
func (r *Retention) Sweep(ctx context.Context) error {
	if !r.autoCleanup(ctx) {
		return nil
	}

	limit, err := r.LimitBytes(ctx)
	if err != nil {
		return err
	}
	if _, err := r.Enforce(ctx, limit); err != nil {
		return err
	}

	due, err := r.ageSweepDue(ctx)
	if err != nil || !due {
		return err
	}
	days, err := r.intSetting(ctx, KeyRetentionDays, 3)
	if err != nil {
		return err
	}
	if _, err := r.PurgeOlderThan(ctx, days); err != nil {
		return err
	}
	return r.store.SetSetting(ctx, KeyLastCleanupAt, r.now().UTC().Format(time.RFC3339))
}

// LimitBytes reads storage_limit_gb as a byte budget. An unparsable value
// disables the budget.
func (r *Retention) LimitBytes(ctx context.Context) (int64, error) {
	raw, err := r.store.GetSetting(ctx, KeyStorageLimitGB, "8")
	if err != nil {
		return 0, err
	}
	gb, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || gb <= 0 {
		return 0, nil
	}
	return int64(gb * bytesPerGB), nil
}

func (r *Retention) autoCleanup(ctx context.Context) bool {
	raw, err := r.store.GetSetting(ctx, KeyAutoCleanup, "1")
	if err != nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no", "off":
		return false
	}
	return true
}

func (r *Retention) ageSweepDue(ctx context.Context) (bool, error) {
	raw, err := r.store.GetSetting(ctx, KeyLastCleanupAt, "")
	if err != nil {
		return false, err
	}
	last, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return true, nil
	}
	return r.now().Sub(last) > AgeSweepEvery, nil
}

func (r *Retention) intSetting(ctx context.Context, key string, def int) (int, error) {
	raw, err := r.store.GetSetting(ctx, key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def, nil
	}
	return v, nil
}

func (r *Retention) report(reason string, removed store.Removal, err error) {
	data := map[string]any{
		"reason":  reason,
		"samples": removed.Samples,
		"bytes":   removed.Bytes,
	}
	if err != nil {
		r.logger.Error("retention.error", err.Error(), data)
		r.publish(events.RetentionFailed{Reason: reason, Err: err})
		return
	}
	if removed.Samples == 0 {
		return
	}
	r.logger.Info("retention.sweep", "removed old samples", data)
	r.publish(events.RetentionDone{Reason: reason, Removed: removed})
}

func (r *Retention) publish(e events.Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
