// Package aggregator rolls a day's cards or segments up into time spent per
// category and per app.
package aggregator

import (
	"sort"

	"github.com/strrl/dayflow/internal/parser"
	"github.com/strrl/dayflow/internal/timeline"
)

const (
	SourceCards    = "cards"
	SourceSegments = "segments"
)

type Config struct {
	// FocusCategories count toward FocusShare.
	FocusCategories []timeline.Category
	// MinBucketSeconds hides buckets shorter than this.
	MinBucketSeconds int
}

func DefaultConfig() Config {
	return Config{
		FocusCategories: []timeline.Category{
			timeline.CategoryCoding,
			timeline.CategoryWriting,
			timeline.CategoryResearch,
			timeline.CategoryDesign,
		},
		MinBucketSeconds: 0,
	}
}

type Bucket struct {
	Name    string  `json:"name" yaml:"name"`
	Seconds int     `json:"seconds" yaml:"seconds"`
	Share   float64 `json:"share" yaml:"share"`
}

type Summary struct {
	Day          string   `json:"day" yaml:"day"`
	Source       string   `json:"source" yaml:"source"`
	TotalSeconds int      `json:"total_seconds" yaml:"total_seconds"`
	FocusSeconds int      `json:"focus_seconds" yaml:"focus_seconds"`
	FocusShare   float64  `json:"focus_share" yaml:"focus_share"`
	Categories   []Bucket `json:"categories,omitempty" yaml:"categories,omitempty"`
	Apps         []Bucket `json:"apps,omitempty" yaml:"apps,omitempty"`
}

type Aggregator struct {
	config Config
	focus  map[timeline.Category]bool
}

func NewAggregator(cfg Config) *Aggregator {
	focus := make(map[timeline.Category]bool, len(cfg.FocusCategories))
	for _, c := range cfg.FocusCategories {
		focus[c] = true
	}
	return &Aggregator{config: cfg, focus: focus}
}

// FromCards totals card spans by category. Cards whose end is not after
// their start contribute nothing.
func (a *Aggregator) FromCards(day string, cards []timeline.Card) Summary {
	summary := Summary{Day: day, Source: SourceCards}
	perCategory := make(map[string]int)

	for _, card := range cards {
		secs := cardSeconds(card)
		if secs <= 0 {
			continue
		}
		summary.TotalSeconds += secs
		perCategory[string(card.Category)] += secs
		if a.focus[card.Category] {
			summary.FocusSeconds += secs
		}
	}

	summary.Categories = a.buckets(perCategory, summary.TotalSeconds)
	summary.FocusShare = share(summary.FocusSeconds, summary.TotalSeconds)
	return summary
}

// FromSegments totals segment durations by app. Segments carry no category,
// so focus is not computed.
func (a *Aggregator) FromSegments(day string, segs []timeline.Segment) Summary {
	summary := Summary{Day: day, Source: SourceSegments}
	perApp := make(map[string]int)

	for _, seg := range segs {
		summary.TotalSeconds += seg.DurationSeconds
		perApp[seg.ProcessName] += seg.DurationSeconds
	}

	summary.Apps = a.buckets(perApp, summary.TotalSeconds)
	return summary
}

func (a *Aggregator) buckets(totals map[string]int, all int) []Bucket {
	out := make([]Bucket, 0, len(totals))
	for name, secs := range totals {
		if secs < a.config.MinBucketSeconds {
			continue
		}
		out = append(out, Bucket{Name: name, Seconds: secs, Share: share(secs, all)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func cardSeconds(card timeline.Card) int {
	start, ok := minuteOfDay(card.Start)
	if !ok {
		return 0
	}
	end, ok := minuteOfDay(card.End)
	if !ok {
		return 0
	}
	return (end - start) * 60
}

func minuteOfDay(hhmm string) (int, bool) {
	norm, ok := parser.NormalizeHHMM(hhmm)
	if !ok {
		return 0, false
	}
	h := int(norm[0]-'0')*10 + int(norm[1]-'0')
	m := int(norm[3]-'0')*10 + int(norm[4]-'0')
	return h*60 + m, true
}

func share(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}
