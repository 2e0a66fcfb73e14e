package events

import "sync"

const DefaultCapacity = 1024

// Bus is a FIFO queue that many producers publish into and one consumer
// drains. Publish never blocks; once Capacity events are pending the
// oldest is discarded.
type Bus struct {
	mu       sync.Mutex
	pending  []Event
	capacity int
	dropped  uint64
	notify   chan struct{}
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	if len(b.pending) >= b.capacity {
		b.pending = b.pending[1:]
		b.dropped++
	}
	b.pending = append(b.pending, e)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Drain removes and returns every pending event in publish order.
func (b *Bus) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.pending
	b.pending = nil
	return out
}

// Ready is signalled after a publish. It may coalesce several publishes.
func (b *Bus) Ready() <-chan struct{} {
	return b.notify
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dropped reports how many events were discarded for lack of room.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
