package segment

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/strrl/dayflow/internal/timeline"
)

const (
	MergeTolerance = 5 * time.Second
	MinMaxGap      = 30 * time.Second

	UnknownProcess = "unknown"
	UnknownWindow  = "Unknown Window"
)

type key struct {
	process string
	title   string
}

type openSegment struct {
	key   key
	seg   timeline.Segment
	start time.Time
	end   time.Time
}

// Build merges samples into contiguous segments. fallbackInterval is the
// expected capture cadence in seconds; it sizes the last sample's span and
// the idle gap clamp. Input order does not matter and the slice is not
// modified.
func Build(samples []timeline.Sample, fallbackInterval float64) []timeline.Segment {
	if len(samples) == 0 {
		return nil
	}

	fallback := fallbackSpan(fallbackInterval)
	maxGap := 2 * fallback
	if maxGap < MinMaxGap {
		maxGap = MinMaxGap
	}

	ordered := make([]timeline.Sample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CapturedAt.Before(ordered[j].CapturedAt)
	})

	var out []timeline.Segment
	var cur *openSegment

	for i, s := range ordered {
		start := s.CapturedAt
		end := start.Add(fallback)
		if i+1 < len(ordered) {
			gap := ordered[i+1].CapturedAt.Sub(start)
			if gap <= 0 {
				gap = fallback
			}
			if gap > maxGap {
				gap = maxGap
			}
			end = start.Add(gap)
		}

		process, title := displayNames(s)
		k := normalizedKey(process, title)

		if cur != nil && cur.key == k && !start.After(cur.end.Add(MergeTolerance)) {
			if end.After(cur.end) {
				cur.end = end
			}
			cur.seg.SampleCount++
			continue
		}

		if cur != nil {
			out = append(out, cur.finish())
		}
		cur = &openSegment{
			key:   k,
			start: start,
			end:   end,
			seg: timeline.Segment{
				ProcessName: process,
				WindowTitle: title,
				SampleCount: 1,
			},
		}
	}

	if cur != nil {
		out = append(out, cur.finish())
	}
	return out
}

func (o *openSegment) finish() timeline.Segment {
	seg := o.seg
	seg.Start = o.start
	seg.End = o.end
	seg.DurationSeconds = durationSeconds(o.end.Sub(o.start))
	return seg
}

func fallbackSpan(interval float64) time.Duration {
	secs := math.Round(interval)
	if secs < 1 || math.IsNaN(secs) {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func durationSeconds(d time.Duration) int {
	secs := int(math.Round(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func displayNames(s timeline.Sample) (string, string) {
	process := collapse(s.ProcessName)
	if process == "" {
		process = UnknownProcess
	}
	title := collapse(s.WindowTitle)
	if title == "" {
		title = UnknownWindow
	}
	return process, title
}

func normalizedKey(process, title string) key {
	return key{
		process: strings.ToLower(process),
		title:   strings.ToLower(title),
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
