// Package app wires configuration, storage and the background loops into
// one running process.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strrl/dayflow/internal/analyzer"
	"github.com/strrl/dayflow/internal/capture"
	"github.com/strrl/dayflow/internal/config"
	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/observability"
	"github.com/strrl/dayflow/internal/periodic"
	"github.com/strrl/dayflow/internal/retention"
	"github.com/strrl/dayflow/internal/scheduler"
	"github.com/strrl/dayflow/internal/store"
)

const (
	KeyCaptureInterval  = "capture_interval_seconds"
	KeyCaptureMode      = "capture_mode"
	KeyAnalysisInterval = "analysis_interval_seconds"

	// StopTimeout bounds how long Run waits for each loop on shutdown.
	StopTimeout = 5 * time.Second

	retentionEvery = time.Hour
)

type App struct {
	Config    *config.Config
	Store     *store.Store
	Bus       *events.Bus
	Logger    *observability.Logger
	Analyzer  *analyzer.Analyzer
	Retention *retention.Retention

	eventLog observability.EventLog
	windows  capture.WindowQuery
	loc      *time.Location
}

type Option func(*App)

// WithWindowQuery replaces the platform focused-window lookup.
func WithWindowQuery(w capture.WindowQuery) Option {
	return func(a *App) { a.windows = w }
}

func WithLocation(loc *time.Location) Option {
	return func(a *App) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// Open opens the store, seeds missing settings from cfg.Defaults and builds
// the analyzer and retention components. The caller must Close the App.
func Open(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		Config:  cfg,
		Bus:     events.NewBus(events.DefaultCapacity),
		windows: capture.SystemWindow(),
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	log, err := observability.OpenJSONL(cfg.EventLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: event log disabled: %v\n", err)
		a.Logger = observability.Nop()
	} else {
		a.eventLog = log
		a.Logger = observability.NewLogger(log)
	}

	st, err := store.Open(cfg.DB.Driver, cfg.DB.Path, store.WithLocation(a.loc))
	if err != nil {
		a.closeLog()
		return nil, err
	}
	a.Store = st

	if err := st.SeedSettings(context.Background(), cfg.Defaults); err != nil {
		a.Close()
		return nil, err
	}

	a.Analyzer = analyzer.New(st, analyzer.ProviderFromSettings(st, cfg.AI.RequestTimeout),
		analyzer.WithPublisher(a.Bus),
		analyzer.WithLogger(a.Logger),
		analyzer.WithLocation(a.loc),
	)
	a.Retention = retention.New(st,
		retention.WithPublisher(a.Bus),
		retention.WithLogger(a.Logger),
	)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	errs = append(errs, a.closeLog())
	return errors.Join(errs...)
}

func (a *App) closeLog() error {
	if a.eventLog == nil {
		return nil
	}
	err := a.eventLog.Close()
	a.eventLog = nil
	return err
}

func (a *App) Location() *time.Location {
	return a.loc
}

// EventLog returns the JSONL log, or nil when it could not be opened.
func (a *App) EventLog() observability.EventLog {
	return a.eventLog
}

// Capturer builds a capturer for the capture_mode setting as it is now.
func (a *App) Capturer(ctx context.Context) (*capture.Capturer, error) {
	mode, err := a.Store.GetSetting(ctx, KeyCaptureMode, capture.ModeScreenshot)
	if err != nil {
		return nil, err
	}
	sampler, err := capture.NewSampler(mode, a.Config.Capture.Command, a.Config.Capture.VideoChunkSeconds)
	if err != nil {
		return nil, err
	}
	return &capture.Capturer{
		Sampler:  sampler,
		Windows:  a.windows,
		Store:    a.Store,
		MediaDir: a.Config.MediaDir,
		Location: a.loc,
	}, nil
}

// Scheduler returns a capture loop that follows capture_interval_seconds.
func (a *App) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	capturer, err := a.Capturer(ctx)
	if err != nil {
		return nil, err
	}
	return scheduler.New(capturer, a.Bus,
		scheduler.WithLogger(a.Logger),
		scheduler.WithIntervalFunc(a.CaptureInterval),
	), nil
}

// CaptureInterval reads capture_interval_seconds. ok is false when the
// setting is unreadable or not a positive number.
func (a *App) CaptureInterval(ctx context.Context) (time.Duration, bool) {
	return a.secondsSetting(ctx, KeyCaptureInterval)
}

// AnalysisInterval reads analysis_interval_seconds, defaulting to 15m.
func (a *App) AnalysisInterval(ctx context.Context) time.Duration {
	if d, ok := a.secondsSetting(ctx, KeyAnalysisInterval); ok {
		return d
	}
	return 15 * time.Minute
}

func (a *App) secondsSetting(ctx context.Context, key string) (time.Duration, bool) {
	raw, err := a.Store.GetSetting(ctx, key, a.Config.Defaults[key])
	if err != nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Foreground runs next to the loops during Run. Returning ends Run.
type Foreground func(ctx context.Context, sched *scheduler.Scheduler) error

// Run starts capture, periodic analysis and retention and blocks until ctx
// is cancelled or fg returns. A failing loop iteration never stops Run. A
// ctx that is already cancelled returns nil without starting anything.
func (a *App) Run(ctx context.Context, fg Foreground) error {
	if ctx.Err() != nil {
		return nil
	}

	// Setup reads must not fail just because shutdown began meanwhile.
	setup := context.WithoutCancel(ctx)
	sched, err := a.Scheduler(setup)
	if err != nil {
		return err
	}
	interval, ok := a.CaptureInterval(setup)
	if !ok {
		interval = 10 * time.Second
	}

	analysis := &periodic.Runner{
		Name:   "analysis",
		Task:   a.Analyzer.Tick,
		Every:  a.AnalysisInterval,
		Logger: a.Logger,
	}
	cleanup := &periodic.Runner{
		Name:       "retention",
		Task:       a.Retention.Sweep,
		Every:      func(context.Context) time.Duration { return retentionEvery },
		RunAtStart: true,
		Logger:     a.Logger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched.Start(interval)
	analysis.Start()
	cleanup.Start()
	a.Logger.Info("app.started", "background loops started", map[string]any{
		"db_driver": a.Config.DB.Driver,
		"media_dir": a.Config.MediaDir,
	})

	var g errgroup.Group
	if fg != nil {
		g.Go(func() error {
			defer cancel()
			return fg(ctx, sched)
		})
	}
	<-ctx.Done()

	a.stopLoops(sched, analysis, cleanup)
	err = g.Wait()
	a.Logger.Info("app.stopped", "background loops stopped", nil)
	return err
}

// stopLoops stops every loop concurrently, each bounded by StopTimeout. A
// loop that misses its deadline is logged and left to finish on its own.
func (a *App) stopLoops(sched *scheduler.Scheduler, runners ...*periodic.Runner) {
	var g errgroup.Group
	g.Go(func() error { return sched.Stop(StopTimeout) })
	for _, r := range runners {
		g.Go(func() error {
			if err := r.Stop(StopTimeout); err != nil {
				a.Logger.Warn(r.Name+".stop_timeout", err.Error(), nil)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.Logger.Warn("app.stop", err.Error(), nil)
	}
}
