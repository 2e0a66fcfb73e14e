package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/strrl/dayflow/internal/timeline"
)

func TestBusPreservesOrder(t *testing.T) {
	bus := NewBus(0)
	for i := 1; i <= 3; i++ {
		bus.Publish(SampleCaptured{Sample: timeline.Sample{ID: int64(i)}})
	}

	got := bus.Drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, e := range got {
		sc, ok := e.(SampleCaptured)
		if !ok {
			t.Fatalf("event %d is %T", i, e)
		}
		if sc.Sample.ID != int64(i+1) {
			t.Errorf("event %d id = %d", i, sc.Sample.ID)
		}
	}

	if len(bus.Drain()) != 0 {
		t.Error("second drain should be empty")
	}
}

func TestBusDropsOldestWhenFull(t *testing.T) {
	bus := NewBus(2)
	bus.Publish(CaptureFailed{Err: errors.New("1")})
	bus.Publish(CaptureFailed{Err: errors.New("2")})
	bus.Publish(CaptureFailed{Err: errors.New("3")})

	if bus.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", bus.Dropped())
	}
	got := bus.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].(CaptureFailed).Err.Error() != "2" {
		t.Errorf("oldest kept = %v", got[0])
	}
}

func TestBusReadySignal(t *testing.T) {
	bus := NewBus(4)
	bus.Publish(AnalysisDone{Day: "2026-03-02"})
	bus.Publish(AnalysisDone{Day: "2026-03-03"})

	select {
	case <-bus.Ready():
	default:
		t.Fatal("Ready not signalled after publish")
	}
	if bus.Len() != 2 {
		t.Errorf("Len = %d, want 2", bus.Len())
	}
}

func TestBusPerProducerOrder(t *testing.T) {
	bus := NewBus(10_000)
	const producers, perProducer = 4, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				bus.Publish(AnalysisDone{Day: string(rune('a' + p)), Cards: i})
			}
		}(p)
	}
	wg.Wait()

	last := map[string]int{}
	count := 0
	for _, e := range bus.Drain() {
		done := e.(AnalysisDone)
		if prev, ok := last[done.Day]; ok && done.Cards <= prev {
			t.Fatalf("producer %s out of order: %d after %d", done.Day, done.Cards, prev)
		}
		last[done.Day] = done.Cards
		count++
	}
	if count != producers*perProducer {
		t.Errorf("received %d events, want %d", count, producers*perProducer)
	}
}

func TestEventSources(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{SampleCaptured{}, SourceCapture},
		{CaptureFailed{}, SourceCapture},
		{AnalysisDone{}, SourceAnalysis},
		{AnalysisFailed{}, SourceAnalysis},
		{RetentionDone{}, SourceRetention},
		{RetentionFailed{}, SourceRetention},
	}
	for _, tt := range tests {
		if got := tt.event.Source(); got != tt.want {
			t.Errorf("%T.Source() = %q, want %q", tt.event, got, tt.want)
		}
	}
}
