package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/strrl/dayflow/internal/timeline"
)

const (
	MaxAskCards    = 40
	MaxAskEvidence = 120
)

// TimelinePrompt asks for the day's cards as a strict JSON object.
func TimelinePrompt(day string) string {
	names := make([]string, 0, len(timeline.Categories))
	for _, c := range timeline.Categories {
		names = append(names, string(c))
	}

	return fmt.Sprintf(`You are generating a productivity timeline from screenshots and window context.
Date: %s
Return strict JSON with this shape only: {"cards":[{"start":"HH:MM","end":"HH:MM","title":"...","summary":"...","category":"..."}],"daily_summary":"..."}

Rules:
- 4 to 16 cards depending on activity changes.
- Times must be local day time in HH:MM 24h.
- title <= 70 chars.
- summary concise and concrete.
- category one of: %s.
- If uncertain, infer best effort from window titles and screenshot hints.
- No markdown, no prose outside JSON.`, day, strings.Join(names, ", "))
}

// ContextLine describes one sample next to its media.
func ContextLine(s timeline.Sample, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	app := strings.TrimSpace(s.ProcessName)
	if app == "" {
		app = "unknown"
	}
	title := strings.TrimSpace(s.WindowTitle)
	if title == "" {
		title = "Unknown Window"
	}
	return fmt.Sprintf("Timestamp=%s, App=%s, Window=%s", s.CapturedAt.In(loc).Format("15:04:05"), app, title)
}

// AskContext is the evidence a question is answered from.
type AskContext struct {
	DateLabel    string
	DailySummary string
	Cards        []timeline.Card
	Evidence     []string
}

func (c AskContext) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date range: %s\n", c.DateLabel)
	if s := strings.TrimSpace(c.DailySummary); s != "" {
		fmt.Fprintf(&b, "Existing daily summary: %s\n", s)
	}

	b.WriteString("\nTimeline cards:\n")
	if len(c.Cards) == 0 {
		b.WriteString("No AI cards are available yet.\n")
	}
	for i, card := range c.Cards {
		if i == MaxAskCards {
			break
		}
		fmt.Fprintf(&b, "- %s %s-%s [%s] %s: %s\n", card.Day, card.Start, card.End, card.Category, card.Title, card.Summary)
	}

	b.WriteString("\nCaptured timeline evidence:\n")
	if len(c.Evidence) == 0 {
		b.WriteString("No captured timeline evidence was provided.\n")
	}
	for i, line := range c.Evidence {
		if i == MaxAskEvidence {
			break
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func AskPrompt(ctx AskContext, question string) string {
	return fmt.Sprintf(`You are Dayflow Dashboard.

%s

User question: %s

Answer concisely with practical insights based on timeline evidence. If evidence is weak, say that clearly. Never invent apps, durations, or events that are not supported by the context.`, ctx.String(), strings.TrimSpace(question))
}
