package periodic

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// stepClock fires After immediately and records the requested waits.
type stepClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	t := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- t
	return ch
}

func TestRunnerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	clock := &stepClock{}

	r := &Runner{
		Name:  "test",
		Clock: clock,
		Every: func(context.Context) time.Duration { return 15 * time.Minute },
		Task: func(context.Context) error {
			if atomic.AddInt32(&runs, 1) == 5 {
				cancel()
			}
			return errors.New("keep going")
		},
	}

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := atomic.LoadInt32(&runs); got != 5 {
		t.Errorf("runs = %d, want 5", got)
	}
	for _, w := range clock.waits {
		if w != 15*time.Minute {
			t.Errorf("wait = %v, want 15m", w)
		}
	}
}

func TestRunnerRunAtStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32

	r := &Runner{
		Name:       "test",
		RunAtStart: true,
		Clock:      &stepClock{},
		Task: func(context.Context) error {
			atomic.AddInt32(&runs, 1)
			cancel()
			return nil
		},
	}
	r.Run(ctx)

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32

	r := &Runner{
		Name:  "test",
		Clock: &stepClock{},
		Task: func(context.Context) error {
			if atomic.AddInt32(&runs, 1) == 2 {
				cancel()
			}
			panic("boom")
		},
	}
	r.Run(ctx)

	if got := atomic.LoadInt32(&runs); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestRunnerStartStop(t *testing.T) {
	r := &Runner{
		Name:  "test",
		Every: func(context.Context) time.Duration { return time.Hour },
		Task:  func(context.Context) error { return nil },
	}

	if !r.Start() {
		t.Fatal("Start returned false")
	}
	if r.Start() {
		t.Fatal("second Start should return false")
	}
	if err := r.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := r.Stop(time.Second); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestRunnerStopTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	r := &Runner{
		Name:       "test",
		RunAtStart: true,
		Task: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}
	r.Start()
	<-started

	if err := r.Stop(10 * time.Millisecond); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Stop = %v, want ErrStopTimeout", err)
	}
	close(release)
}
