package monitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/store"
	"github.com/strrl/dayflow/internal/timeline"
)

var at = time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

func newModel(actions Actions) Model {
	return New(events.NewBus(0), actions, time.Millisecond, time.UTC)
}

func TestApplyEvents(t *testing.T) {
	m := newModel(Actions{})
	msg := EventsMsg{
		Events: []events.Event{
			events.SampleCaptured{Sample: timeline.Sample{CapturedAt: at, ProcessName: "Code", WindowTitle: "main.go"}},
			events.CaptureFailed{At: at.Add(10 * time.Second), Err: errors.New("no display")},
			events.AnalysisDone{Day: "2026-03-02", Cards: 5, Dropped: 1},
			events.RetentionDone{Reason: "limit", Removed: store.Removal{Samples: 2, Bytes: 20}},
		},
		Dropped: 3,
	}

	updated, cmd := m.Update(msg)
	model := updated.(Model)
	if cmd == nil {
		t.Error("EventsMsg should schedule the next poll")
	}
	if model.samples != 1 || model.captureErrs != 1 || !model.captureErr {
		t.Errorf("counts = %d/%d err=%v", model.samples, model.captureErrs, model.captureErr)
	}
	if model.lastAnalysis != "2026-03-02: 5 cards, 1 dropped" {
		t.Errorf("lastAnalysis = %q", model.lastAnalysis)
	}
	if model.lastCleanup != "limit: 2 samples, 20 bytes" {
		t.Errorf("lastCleanup = %q", model.lastCleanup)
	}

	view := model.View()
	for _, want := range []string{"no display", "5 cards", "3 events dropped", "1 captured, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestPollDrainsSource(t *testing.T) {
	bus := events.NewBus(0)
	bus.Publish(events.AnalysisFailed{Day: "2026-03-02", Err: errors.New("status 500")})
	m := New(bus, Actions{}, time.Millisecond, time.UTC)

	_, cmd := m.Update(PollMsg{})
	msg, ok := cmd().(EventsMsg)
	if !ok || len(msg.Events) != 1 {
		t.Fatalf("drain msg = %#v", msg)
	}
	updated, _ := m.Update(msg)
	if !updated.(Model).analysisErr {
		t.Error("analysis failure should be flagged")
	}
	if bus.Len() != 0 {
		t.Error("bus should be drained")
	}
}

func TestRecentIsBounded(t *testing.T) {
	m := newModel(Actions{})
	var evs []events.Event
	for i := 0; i < 20; i++ {
		evs = append(evs, events.AnalysisDone{Day: "d", Cards: i})
	}
	updated, _ := m.Update(EventsMsg{Events: evs})
	if got := len(updated.(Model).recent); got != maxRecent {
		t.Errorf("recent = %d, want %d", got, maxRecent)
	}
}

func TestCaptureKey(t *testing.T) {
	called := false
	m := newModel(Actions{CaptureNow: func() error { called = true; return errors.New("busy display") }})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	model := updated.(Model)
	if model.busy != "capture" || cmd == nil {
		t.Fatalf("busy = %q", model.busy)
	}

	// A second press while busy does nothing.
	if _, again := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}}); again != nil {
		t.Error("key while busy should be ignored")
	}

	done := cmd().(ActionDoneMsg)
	if !called || done.Name != "capture" {
		t.Fatalf("done = %+v", done)
	}
	updated, _ = model.Update(done)
	model = updated.(Model)
	if model.busy != "" || !strings.Contains(strings.Join(model.recent, "\n"), "busy display") {
		t.Errorf("after done: busy=%q recent=%v", model.busy, model.recent)
	}
}

func TestFooterHidesMissingActions(t *testing.T) {
	view := newModel(Actions{}).View()
	if strings.Contains(view, "capture now") || !strings.Contains(view, "quit") {
		t.Errorf("footer = %q", view)
	}
}

func TestQuit(t *testing.T) {
	_, cmd := newModel(Actions{}).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}
