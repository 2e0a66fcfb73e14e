// Package monitor is the live terminal view for `dayflow run --tui`. It
// polls the event bus and shows the latest result of each background loop.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/timeline"
)

const (
	DefaultPoll = 250 * time.Millisecond
	maxRecent   = 8
)

type Source interface {
	Drain() []events.Event
	Dropped() uint64
}

// Actions are run off the UI goroutine when their key is pressed. Nil
// actions are hidden.
type Actions struct {
	CaptureNow func() error
	AnalyzeNow func() error
}

type Model struct {
	source  Source
	actions Actions
	poll    time.Duration
	loc     *time.Location

	samples      int
	captureErrs  int
	lastSample   *timeline.Sample
	lastCapture  string
	lastAnalysis string
	lastCleanup  string
	analysisErr  bool
	captureErr   bool
	dropped      uint64
	recent       []string
	busy         string

	width  int
	height int
}

func New(source Source, actions Actions, poll time.Duration, loc *time.Location) Model {
	if poll <= 0 {
		poll = DefaultPoll
	}
	if loc == nil {
		loc = time.Local
	}
	return Model{
		source:       source,
		actions:      actions,
		poll:         poll,
		loc:          loc,
		lastCapture:  "waiting for first sample",
		lastAnalysis: "none yet",
		lastCleanup:  "none yet",
	}
}

func (m Model) Init() tea.Cmd {
	return pollCmd(m.poll)
}

func pollCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return PollMsg{} })
}

func drainCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		return EventsMsg{Events: src.Drain(), Dropped: src.Dropped()}
	}
}

func actionCmd(name string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return ActionDoneMsg{Name: name, Err: fn()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case PollMsg:
		return m, drainCmd(m.source)

	case EventsMsg:
		for _, e := range msg.Events {
			m.apply(e)
		}
		m.dropped = msg.Dropped
		return m, pollCmd(m.poll)

	case ActionDoneMsg:
		m.busy = ""
		if msg.Err != nil {
			m.remember(ErrorTextStyle.Render(fmt.Sprintf("%s failed: %v", msg.Name, msg.Err)))
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "c":
		if m.actions.CaptureNow != nil && m.busy == "" {
			m.busy = "capture"
			return m, actionCmd("capture", m.actions.CaptureNow)
		}
	case "a":
		if m.actions.AnalyzeNow != nil && m.busy == "" {
			m.busy = "analysis"
			return m, actionCmd("analysis", m.actions.AnalyzeNow)
		}
	}
	return m, nil
}

func (m *Model) apply(e events.Event) {
	switch ev := e.(type) {
	case events.SampleCaptured:
		s := ev.Sample
		m.samples++
		m.lastSample = &s
		m.captureErr = false
		m.lastCapture = fmt.Sprintf("%s  %s | %s", m.clock(s.CapturedAt), orDash(s.ProcessName), orDash(s.WindowTitle))
	case events.CaptureFailed:
		m.captureErrs++
		m.captureErr = true
		m.lastCapture = fmt.Sprintf("%s  %v", m.clock(ev.At), ev.Err)
		m.remember(ErrorTextStyle.Render("capture: " + ev.Err.Error()))
	case events.AnalysisDone:
		m.analysisErr = false
		m.lastAnalysis = fmt.Sprintf("%s: %d cards, %d dropped", ev.Day, ev.Cards, ev.Dropped)
		m.remember(fmt.Sprintf("analysis %s", m.lastAnalysis))
	case events.AnalysisFailed:
		m.analysisErr = true
		m.lastAnalysis = fmt.Sprintf("%s: %v", ev.Day, ev.Err)
		m.remember(ErrorTextStyle.Render("analysis: " + ev.Err.Error()))
	case events.RetentionDone:
		m.lastCleanup = fmt.Sprintf("%s: %d samples, %d bytes", ev.Reason, ev.Removed.Samples, ev.Removed.Bytes)
		m.remember("cleanup " + m.lastCleanup)
	case events.RetentionFailed:
		m.lastCleanup = fmt.Sprintf("%s: %v", ev.Reason, ev.Err)
		m.remember(ErrorTextStyle.Render("cleanup: " + ev.Err.Error()))
	}
}

func (m *Model) remember(line string) {
	m.recent = append(m.recent, line)
	if len(m.recent) > maxRecent {
		m.recent = m.recent[len(m.recent)-maxRecent:]
	}
}

func (m Model) clock(t time.Time) string {
	return t.In(m.loc).Format("15:04:05")
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Dayflow") + "\n\n")

	status := func(label, value string, failed bool) {
		style := OKStyle
		if failed {
			style = ErrorTextStyle
		}
		sb.WriteString(LabelStyle.Render(label) + style.Render(value) + "\n")
	}
	status("capture", m.lastCapture, m.captureErr)
	status("analysis", m.lastAnalysis, m.analysisErr)
	status("cleanup", m.lastCleanup, false)
	sb.WriteString(LabelStyle.Render("samples") + fmt.Sprintf("%d captured, %d failed", m.samples, m.captureErrs) + "\n")
	if m.dropped > 0 {
		sb.WriteString(DimStyle.Render(fmt.Sprintf("%d events dropped", m.dropped)) + "\n")
	}

	if len(m.recent) > 0 {
		sb.WriteString("\n")
		for _, line := range m.recent {
			sb.WriteString("  " + line + "\n")
		}
	}

	sb.WriteString("\n" + m.footer())
	return sb.String()
}

func (m Model) footer() string {
	if m.busy != "" {
		return DimStyle.Render(m.busy + " running...")
	}
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, FooterKeyStyle.Render(k)+" "+FooterDescStyle.Render(desc))
	}
	if m.actions.CaptureNow != nil {
		key("c", "capture now")
	}
	if m.actions.AnalyzeNow != nil {
		key("a", "analyze now")
	}
	key("q", "quit")
	return strings.Join(parts, "  ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
