// Package mcp exposes the timeline read-only over the Model Context
// Protocol so assistants can query a day's activity.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strrl/dayflow/internal/aggregator"
	"github.com/strrl/dayflow/internal/timeline"
)

type Reader interface {
	CardsForDay(ctx context.Context, day string) ([]timeline.Card, error)
	DailySummary(ctx context.Context, day string) (string, error)
}

type SegmentSource interface {
	Segments(ctx context.Context, day string) ([]timeline.Segment, error)
}

type Server struct {
	server   *gomcp.Server
	reader   Reader
	segments SegmentSource
	agg      *aggregator.Aggregator
	loc      *time.Location
	now      func() time.Time
}

func NewServer(reader Reader, segments SegmentSource, loc *time.Location, version string) *Server {
	if version == "" {
		version = "dev"
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Server{
		reader:   reader,
		segments: segments,
		agg:      aggregator.NewAggregator(aggregator.DefaultConfig()),
		loc:      loc,
		now:      time.Now,
	}
	s.server = gomcp.NewServer(&gomcp.Implementation{Name: "dayflow", Version: version}, nil)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

type dayInput struct {
	Day string `json:"day,omitempty" jsonschema:"local day as YYYY-MM-DD. Defaults to today."`
}

type cardOutput struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

type timelineOutput struct {
	Day          string       `json:"day"`
	DailySummary string       `json:"daily_summary,omitempty"`
	Cards        []cardOutput `json:"cards,omitempty"`
	Count        int          `json:"count"`
}

type segmentOutput struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationSeconds int    `json:"duration_seconds"`
	Process         string `json:"process"`
	Window          string `json:"window"`
	Samples         int    `json:"samples"`
}

type segmentsOutput struct {
	Day      string          `json:"day"`
	Segments []segmentOutput `json:"segments,omitempty"`
	Count    int             `json:"count"`
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_timeline",
		Description: "Get the AI timeline cards and daily summary for a day.",
	}, s.handleGetTimeline)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_segments",
		Description: "Get activity segments (app and window runs) merged from raw captures for a day.",
	}, s.handleGetSegments)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stats",
		Description: "Get time spent per category (from cards) or per app (from segments when no cards exist) for a day.",
	}, s.handleGetStats)
}

func (s *Server) handleGetTimeline(ctx context.Context, _ *gomcp.CallToolRequest, input dayInput) (*gomcp.CallToolResult, timelineOutput, error) {
	day, err := s.day(input.Day)
	if err != nil {
		return errorResult(err.Error()), timelineOutput{}, nil
	}

	cards, err := s.reader.CardsForDay(ctx, day)
	if err != nil {
		return errorResult(fmt.Sprintf("reading cards for %s: %s", day, err)), timelineOutput{}, nil
	}
	summary, err := s.reader.DailySummary(ctx, day)
	if err != nil {
		return errorResult(fmt.Sprintf("reading summary for %s: %s", day, err)), timelineOutput{}, nil
	}

	out := timelineOutput{Day: day, DailySummary: summary, Count: len(cards)}
	for _, c := range cards {
		out.Cards = append(out.Cards, cardOutput{
			Start:    c.Start,
			End:      c.End,
			Title:    c.Title,
			Summary:  c.Summary,
			Category: string(c.Category),
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetSegments(ctx context.Context, _ *gomcp.CallToolRequest, input dayInput) (*gomcp.CallToolResult, segmentsOutput, error) {
	day, err := s.day(input.Day)
	if err != nil {
		return errorResult(err.Error()), segmentsOutput{}, nil
	}

	segs, err := s.segments.Segments(ctx, day)
	if err != nil {
		return errorResult(fmt.Sprintf("building segments for %s: %s", day, err)), segmentsOutput{}, nil
	}

	out := segmentsOutput{Day: day, Count: len(segs)}
	for _, seg := range segs {
		out.Segments = append(out.Segments, segmentOutput{
			Start:           seg.Start.In(s.loc).Format(time.RFC3339),
			End:             seg.End.In(s.loc).Format(time.RFC3339),
			DurationSeconds: seg.DurationSeconds,
			Process:         seg.ProcessName,
			Window:          seg.WindowTitle,
			Samples:         seg.SampleCount,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *gomcp.CallToolRequest, input dayInput) (*gomcp.CallToolResult, aggregator.Summary, error) {
	day, err := s.day(input.Day)
	if err != nil {
		return errorResult(err.Error()), aggregator.Summary{}, nil
	}

	cards, err := s.reader.CardsForDay(ctx, day)
	if err != nil {
		return errorResult(fmt.Sprintf("reading cards for %s: %s", day, err)), aggregator.Summary{}, nil
	}
	if len(cards) > 0 {
		return nil, s.agg.FromCards(day, cards), nil
	}

	segs, err := s.segments.Segments(ctx, day)
	if err != nil {
		return errorResult(fmt.Sprintf("building segments for %s: %s", day, err)), aggregator.Summary{}, nil
	}
	return nil, s.agg.FromSegments(day, segs), nil
}

func (s *Server) day(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return timeline.DayKey(s.now(), s.loc), nil
	}
	if _, err := timeline.ParseDay(raw, s.loc); err != nil {
		return "", fmt.Errorf("invalid day %q: use YYYY-MM-DD", raw)
	}
	return raw, nil
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
