// Package output renders a day's timeline as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/strrl/dayflow/internal/aggregator"
	"github.com/strrl/dayflow/internal/timeline"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	ModeCards    = "cards"
	ModeSegments = "segments"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type CardView struct {
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Title    string `json:"title" yaml:"title"`
	Summary  string `json:"summary" yaml:"summary"`
	Category string `json:"category" yaml:"category"`
	Color    string `json:"color" yaml:"color"`
}

type SegmentView struct {
	Start           time.Time `json:"start" yaml:"start"`
	End             time.Time `json:"end" yaml:"end"`
	DurationSeconds int       `json:"duration_seconds" yaml:"duration_seconds"`
	Process         string    `json:"process" yaml:"process"`
	Window          string    `json:"window" yaml:"window"`
	Samples         int       `json:"samples" yaml:"samples"`
}

// DayView is everything shown for one day. Mode is cards when AI cards exist,
// segments otherwise.
type DayView struct {
	Day          string             `json:"day" yaml:"day"`
	Mode         string             `json:"mode" yaml:"mode"`
	DailySummary string             `json:"daily_summary,omitempty" yaml:"daily_summary,omitempty"`
	Cards        []CardView         `json:"cards,omitempty" yaml:"cards,omitempty"`
	Segments     []SegmentView      `json:"segments,omitempty" yaml:"segments,omitempty"`
	Stats        aggregator.Summary `json:"stats" yaml:"stats"`
}

// NewDayView prefers cards and falls back to segments.
func NewDayView(day, summary string, cards []timeline.Card, segs []timeline.Segment, agg *aggregator.Aggregator) DayView {
	view := DayView{Day: day, DailySummary: summary}
	if len(cards) > 0 {
		view.Mode = ModeCards
		for _, c := range cards {
			view.Cards = append(view.Cards, CardView{
				Start:    c.Start,
				End:      c.End,
				Title:    c.Title,
				Summary:  c.Summary,
				Category: string(c.Category),
				Color:    c.Color(),
			})
		}
		view.Stats = agg.FromCards(day, cards)
		return view
	}

	view.Mode = ModeSegments
	for _, s := range segs {
		view.Segments = append(view.Segments, SegmentView{
			Start:           s.Start,
			End:             s.End,
			DurationSeconds: s.DurationSeconds,
			Process:         s.ProcessName,
			Window:          s.WindowTitle,
			Samples:         s.SampleCount,
		})
	}
	view.Stats = agg.FromSegments(day, segs)
	return view
}

func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Render writes v as format. Text rendering of a DayView is styled; other
// values are printed with %v.
func Render(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		var text string
		switch val := v.(type) {
		case DayView:
			text = renderDay(val)
		case SampleView:
			text = renderSample(val)
		default:
			text = fmt.Sprintf("%v\n", v)
		}
		_, err := io.WriteString(w, text)
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func renderDay(v DayView) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Timeline "+v.Day) + "\n")
	if v.DailySummary != "" {
		sb.WriteString(v.DailySummary + "\n")
	}
	sb.WriteString("\n")

	switch {
	case len(v.Cards) > 0:
		for _, c := range v.Cards {
			chip := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
			sb.WriteString(fmt.Sprintf("%s %s-%s  %-13s %s\n", chip, c.Start, c.End, c.Category, c.Title))
			if c.Summary != "" {
				sb.WriteString("    " + mutedStyle.Render(truncate(c.Summary, 160)) + "\n")
			}
		}
	case len(v.Segments) > 0:
		for _, s := range v.Segments {
			sb.WriteString(fmt.Sprintf("%s-%s  %-8s %s | %s\n",
				s.Start.Format("15:04:05"),
				s.End.Format("15:04:05"),
				timeline.FormatDuration(s.DurationSeconds),
				s.Process,
				truncate(s.Window, 80)))
		}
	default:
		sb.WriteString(mutedStyle.Render("No activity recorded.") + "\n")
		return sb.String()
	}

	sb.WriteString("\n")
	sb.WriteString(renderStats(v.Stats))
	return sb.String()
}

func renderStats(s aggregator.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %s", timeline.FormatDuration(s.TotalSeconds)))
	if s.Source == aggregator.SourceCards {
		sb.WriteString(fmt.Sprintf("  Focus: %s (%.0f%%)", timeline.FormatDuration(s.FocusSeconds), s.FocusShare*100))
	}
	sb.WriteString("\n")

	buckets := s.Categories
	if s.Source == aggregator.SourceSegments {
		buckets = s.Apps
	}
	for _, b := range buckets {
		sb.WriteString(fmt.Sprintf("  %-16s %8s  %3.0f%%\n", b.Name, timeline.FormatDuration(b.Seconds), b.Share*100))
	}
	return sb.String()
}

// SampleView is the printable identity of one captured sample.
type SampleView struct {
	ID         int64     `json:"id" yaml:"id"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
	MediaRef   string    `json:"media_ref" yaml:"media_ref"`
	Size       int64     `json:"size" yaml:"size"`
	Process    string    `json:"process" yaml:"process"`
	Title      string    `json:"title" yaml:"title"`
	Status     string    `json:"status" yaml:"status"`
}

func NewSampleView(s timeline.Sample) SampleView {
	return SampleView{
		ID:         s.ID,
		CapturedAt: s.CapturedAt,
		MediaRef:   s.MediaRef,
		Size:       s.MediaSize,
		Process:    s.ProcessName,
		Title:      s.WindowTitle,
		Status:     string(s.Status),
	}
}

func renderSample(s SampleView) string {
	return fmt.Sprintf("id: %d\ncaptured_at: %s\nmedia_ref: %s\nsize: %d\nprocess: %s\ntitle: %s\n",
		s.ID, s.CapturedAt.Format(time.RFC3339), s.MediaRef, s.Size, s.Process, s.Title)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
