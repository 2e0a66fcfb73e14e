package monitor

import "github.com/strrl/dayflow/internal/events"

// PollMsg fires when it is time to drain the bus again.
type PollMsg struct{}

// EventsMsg carries drained events into the model.
type EventsMsg struct {
	Events  []events.Event
	Dropped uint64
}

// ActionDoneMsg reports the result of a key-triggered action.
type ActionDoneMsg struct {
	Name string
	Err  error
}
