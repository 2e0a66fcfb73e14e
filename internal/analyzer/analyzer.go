// Package analyzer turns a day's samples into timeline cards through an AI
// provider, or into plain segments when no provider is configured.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strrl/dayflow/internal/ai"
	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/media"
	"github.com/strrl/dayflow/internal/observability"
	"github.com/strrl/dayflow/internal/parser"
	"github.com/strrl/dayflow/internal/segment"
	"github.com/strrl/dayflow/internal/timeline"
)

// MaxSamples caps the evidence sent in one request.
const MaxSamples = 20

const defaultCaptureInterval = 10.0

var (
	ErrNoData        = errors.New("no completed samples")
	ErrNoValidCards  = errors.New("no valid cards in response")
	ErrEmptyQuestion = errors.New("question is empty")
)

type Mode string

const (
	ModeAI       Mode = "ai"
	ModeFallback Mode = "fallback"
)

// Outcome reports one Analyze call. Fallback outcomes carry Segments and
// no batch.
type Outcome struct {
	Mode         Mode
	Day          string
	BatchID      string
	Cards        []timeline.Card
	Dropped      int
	DailySummary string
	Segments     []timeline.Segment
}

type Store interface {
	SamplesForDay(ctx context.Context, day string) ([]timeline.Sample, error)
	CreateBatch(ctx context.Context, b timeline.Batch) error
	FinishBatch(ctx context.Context, id string, status timeline.BatchStatus, errMsg string) error
	BatchesForDay(ctx context.Context, day string) ([]timeline.Batch, error)
	ReplaceCardsForDay(ctx context.Context, day, batchID string, cards []timeline.Card, summary string) error
	CardsForDay(ctx context.Context, day string) ([]timeline.Card, error)
	DailySummary(ctx context.Context, day string) (string, error)
	CountCompleted(ctx context.Context, from, to time.Time) (int, error)
	GetSetting(ctx context.Context, key, def string) (string, error)
}

type Publisher interface {
	Publish(e events.Event)
}

// ProviderFunc resolves the provider for one call. It returns
// ai.ErrDisabled when none is configured.
type ProviderFunc func(ctx context.Context) (ai.Provider, error)

type Analyzer struct {
	store     Store
	providers ProviderFunc
	bus       Publisher
	logger    *observability.Logger
	loc       *time.Location
	now       func() time.Time
}

type Option func(*Analyzer)

func WithPublisher(p Publisher) Option {
	return func(a *Analyzer) { a.bus = p }
}

func WithLogger(l *observability.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

func New(store Store, providers ProviderFunc, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:     store,
		providers: providers,
		logger:    observability.Nop(),
		loc:       time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze replaces day's cards with a fresh analysis of its completed
// samples. On any failure the batch is marked failed and prior cards stay.
func (a *Analyzer) Analyze(ctx context.Context, day string) (Outcome, error) {
	out := Outcome{Day: day}

	samples, err := a.completedSamples(ctx, day)
	if err != nil {
		return out, err
	}
	if len(samples) == 0 {
		return out, fmt.Errorf("%s: %w", day, ErrNoData)
	}

	provider, err := a.provider(ctx)
	if errors.Is(err, ai.ErrDisabled) {
		out.Mode = ModeFallback
		out.Segments = segment.Build(samples, a.captureInterval(ctx))
		a.logger.Info("analysis.fallback", "no provider configured, using segments", map[string]any{
			"day":      day,
			"samples":  len(samples),
			"segments": len(out.Segments),
		})
		return out, nil
	}
	if err != nil {
		a.publishFailure(day, "", err)
		return out, err
	}

	out.Mode = ModeAI
	out.BatchID = uuid.NewString()
	batch := timeline.Batch{
		ID:          out.BatchID,
		Day:         day,
		StartAt:     samples[0].CapturedAt,
		EndAt:       samples[len(samples)-1].CapturedAt,
		SampleCount: len(samples),
	}
	if err := a.store.CreateBatch(ctx, batch); err != nil {
		a.publishFailure(day, "", err)
		return out, err
	}

	parsed, err := a.generate(ctx, provider, day, samples)
	if err != nil {
		return out, a.fail(ctx, day, out.BatchID, err)
	}

	cards := parsed.Valid()
	out.Dropped = parsed.Dropped()
	if len(cards) == 0 {
		return out, a.fail(ctx, day, out.BatchID, ErrNoValidCards)
	}
	for i := range cards {
		cards[i].Day = day
		cards[i].BatchID = out.BatchID
	}

	if err := a.store.ReplaceCardsForDay(ctx, day, out.BatchID, cards, parsed.DailySummary); err != nil {
		return out, a.fail(ctx, day, out.BatchID, err)
	}
	if err := a.store.FinishBatch(ctx, out.BatchID, timeline.BatchCompleted, ""); err != nil {
		return out, err
	}

	out.Cards = cards
	out.DailySummary = parsed.DailySummary
	a.logger.Info("analysis.completed", "timeline cards replaced", map[string]any{
		"day":      day,
		"batch_id": out.BatchID,
		"provider": provider.Name(),
		"samples":  len(samples),
		"cards":    len(cards),
		"dropped":  out.Dropped,
	})
	a.publish(events.AnalysisDone{Day: day, BatchID: out.BatchID, Cards: len(cards), Dropped: out.Dropped})
	return out, nil
}

func (a *Analyzer) generate(ctx context.Context, provider ai.Provider, day string, samples []timeline.Sample) (*parser.Timeline, error) {
	picked := Downsample(samples, MaxSamples)
	parts := make([]ai.Part, 0, len(picked))
	for _, s := range picked {
		parts = append(parts, ai.Part{
			MediaPath: s.MediaRef,
			MIMEType:  media.MIMEType(s.MediaRef),
			Context:   ai.ContextLine(s, a.loc),
		})
	}

	raw, err := provider.GenerateWithMedia(ctx, ai.TimelinePrompt(day), parts)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.DecodeTimeline(raw)
	if err != nil {
		return nil, &ai.ProviderError{Provider: provider.Name(), Err: err}
	}
	return parsed, nil
}

func (a *Analyzer) fail(ctx context.Context, day, batchID string, cause error) error {
	if err := a.store.FinishBatch(ctx, batchID, timeline.BatchFailed, cause.Error()); err != nil {
		cause = errors.Join(cause, err)
	}
	a.publishFailure(day, batchID, cause)
	return cause
}

func (a *Analyzer) publishFailure(day, batchID string, err error) {
	a.logger.Error("analysis.failed", err.Error(), map[string]any{
		"day":      day,
		"batch_id": batchID,
	})
	a.publish(events.AnalysisFailed{Day: day, BatchID: batchID, Err: err})
}

func (a *Analyzer) publish(e events.Event) {
	if a.bus != nil {
		a.bus.Publish(e)
	}
}

func (a *Analyzer) provider(ctx context.Context) (ai.Provider, error) {
	if a.providers == nil {
		return nil, ai.ErrDisabled
	}
	return a.providers(ctx)
}

func (a *Analyzer) completedSamples(ctx context.Context, day string) ([]timeline.Sample, error) {
	all, err := a.store.SamplesForDay(ctx, day)
	if err != nil {
		return nil, err
	}
	samples := all[:0:0]
	for _, s := range all {
		if s.Status == timeline.SampleCompleted {
			samples = append(samples, s)
		}
	}
	return samples, nil
}

func (a *Analyzer) captureInterval(ctx context.Context) float64 {
	raw, err := a.store.GetSetting(ctx, "capture_interval_seconds", "")
	if err != nil {
		return defaultCaptureInterval
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return defaultCaptureInterval
	}
	return v
}

// Segments builds the day's segments from its completed samples.
func (a *Analyzer) Segments(ctx context.Context, day string) ([]timeline.Segment, error) {
	samples, err := a.completedSamples(ctx, day)
	if err != nil {
		return nil, err
	}
	return segment.Build(samples, a.captureInterval(ctx)), nil
}

// Downsample keeps at most max samples by fixed stride. The first and last
// samples are always kept.
func Downsample(samples []timeline.Sample, max int) []timeline.Sample {
	if max <= 0 || len(samples) <= max {
		out := make([]timeline.Sample, len(samples))
		copy(out, samples)
		return out
	}

	step := len(samples) / max
	if step < 1 {
		step = 1
	}
	out := make([]timeline.Sample, 0, max)
	for i := 0; i < len(samples) && len(out) < max; i += step {
		out = append(out, samples[i])
	}
	out[len(out)-1] = samples[len(samples)-1]
	return out
}
