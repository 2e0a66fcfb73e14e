// Package periodic runs a task on a fixed cadence until cancelled. The
// analysis and retention triggers are both built on it.
package periodic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/strrl/dayflow/internal/observability"
	"github.com/strrl/dayflow/internal/scheduler"
)

var ErrStopTimeout = errors.New("periodic task did not stop in time")

type Task func(ctx context.Context) error

// Runner calls Task every Every(ctx). A failing run is logged and the next
// one still happens.
type Runner struct {
	Name       string
	Task       Task
	Every      func(ctx context.Context) time.Duration
	RunAtStart bool
	Clock      scheduler.Clock
	Logger     *observability.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Run blocks until ctx is cancelled. It returns nil on cancellation.
func (r *Runner) Run(ctx context.Context) error {
	clock := r.Clock
	if clock == nil {
		clock = scheduler.RealClock()
	}

	if r.RunAtStart {
		r.runOnce(ctx)
	}
	for {
		wait := r.every(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-clock.After(wait):
		}
		if ctx.Err() != nil {
			return nil
		}
		r.runOnce(ctx)
	}
}

// Start runs the loop in the background. It returns false if already
// running.
func (r *Runner) Start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		r.Run(ctx)
	}(r.done)
	return true
}

// Stop cancels a loop started with Start and waits up to timeout.
func (r *Runner) Stop(timeout time.Duration) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

func (r *Runner) every(ctx context.Context) time.Duration {
	d := time.Minute
	if r.Every != nil {
		d = r.Every(ctx)
	}
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (r *Runner) runOnce(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.Logger.Error(r.Name+".error", "task panicked", map[string]any{"panic": p})
		}
	}()
	if err := r.Task(ctx); err != nil && ctx.Err() == nil {
		r.Logger.Error(r.Name+".error", err.Error(), nil)
	}
}
