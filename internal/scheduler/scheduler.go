// Package scheduler drives periodic sample capture against a deadline so a
// slow capture never causes cumulative drift.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/observability"
	"github.com/strrl/dayflow/internal/timeline"
)

const (
	MinInterval = time.Second
	MaxInterval = 300 * time.Second

	// Epsilon is the minimum pause between the end of one capture and the
	// start of the next.
	Epsilon = 50 * time.Millisecond
)

var ErrStopTimeout = errors.New("scheduler did not stop in time")

type Capturer interface {
	CaptureOnce(ctx context.Context) (timeline.Sample, error)
}

type Publisher interface {
	Publish(e events.Event)
}

// IntervalFunc returns the interval to use for the next tick. It is called
// after every capture so setting changes apply without a restart. ok=false
// keeps the current interval.
type IntervalFunc func(ctx context.Context) (interval time.Duration, ok bool)

type Scheduler struct {
	capturer Capturer
	bus      Publisher
	clock    Clock
	logger   *observability.Logger
	interval IntervalFunc

	mu      sync.Mutex
	running bool
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *observability.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithIntervalFunc(f IntervalFunc) Option {
	return func(s *Scheduler) { s.interval = f }
}

func New(capturer Capturer, bus Publisher, opts ...Option) *Scheduler {
	s := &Scheduler{
		capturer: capturer,
		bus:      bus,
		clock:    RealClock(),
		logger:   observability.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Start launches the capture loop and returns true, or returns false if a
// loop is already running. It never blocks.
func (s *Scheduler) Start(interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	interval = ClampInterval(interval)
	s.logger.Info("scheduler.started", "capture loop started", map[string]any{"interval_seconds": interval.Seconds()})
	go s.loop(ctx, s.gen, interval, s.done)
	return true
}

// Stop cancels the loop and waits up to timeout for it to exit. Once Stop
// returns nothing more is published, even if the loop is still finishing a
// capture and ErrStopTimeout is returned.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.gen++
	s.cancel()
	done := s.done
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		s.logger.Info("scheduler.stopped", "capture loop stopped", nil)
		return nil
	case <-timer.C:
		s.logger.Warn("scheduler.stop_timeout", "capture loop still running after stop", map[string]any{
			"timeout_seconds": timeout.Seconds(),
		})
		return ErrStopTimeout
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CaptureOnce takes a single sample outside the loop.
func (s *Scheduler) CaptureOnce(ctx context.Context) (timeline.Sample, error) {
	return s.capturer.CaptureOnce(ctx)
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, interval time.Duration, done chan struct{}) {
	defer close(done)

	next := s.clock.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		if now := s.clock.Now(); now.Before(next) {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(next.Sub(now)):
			}
		}

		sample, err := s.capturer.CaptureOnce(ctx)
		s.deliver(gen, sample, err)

		if s.interval != nil {
			if d, ok := s.interval(ctx); ok {
				interval = ClampInterval(d)
			}
		}
		next = nextDeadline(next, s.clock.Now(), interval)
	}
}

func (s *Scheduler) deliver(gen uint64, sample timeline.Sample, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}

	if err != nil {
		s.logger.Error("capture.error", err.Error(), nil)
		s.bus.Publish(events.CaptureFailed{At: s.clock.Now(), Err: err})
		return
	}
	s.logger.Info("capture.sample", "sample captured", map[string]any{
		"id":      sample.ID,
		"bytes":   sample.MediaSize,
		"process": sample.ProcessName,
	})
	s.bus.Publish(events.SampleCaptured{Sample: sample})
}

// nextDeadline advances prev by one interval, but never schedules sooner
// than Epsilon after now.
func nextDeadline(prev, now time.Time, interval time.Duration) time.Time {
	next := prev.Add(interval)
	if floor := now.Add(Epsilon); next.Before(floor) {
		return floor
	}
	return next
}
