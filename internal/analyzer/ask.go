package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/strrl/dayflow/internal/ai"
	"github.com/strrl/dayflow/internal/parser"
	"github.com/strrl/dayflow/internal/timeline"
)

// Ask answers a free-form question about day from its cards and segments.
func (a *Analyzer) Ask(ctx context.Context, day, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	provider, err := a.provider(ctx)
	if err != nil {
		return "", err
	}

	askCtx, err := a.askContext(ctx, day)
	if err != nil {
		return "", err
	}

	raw, err := provider.Generate(ctx, ai.AskPrompt(askCtx, question))
	if err != nil {
		return "", err
	}
	answer, err := parser.DecodeAnswer(raw)
	if err != nil {
		return "", &ai.ProviderError{Provider: provider.Name(), Err: err}
	}
	return answer, nil
}

func (a *Analyzer) askContext(ctx context.Context, day string) (ai.AskContext, error) {
	cards, err := a.store.CardsForDay(ctx, day)
	if err != nil {
		return ai.AskContext{}, err
	}
	summary, err := a.store.DailySummary(ctx, day)
	if err != nil {
		return ai.AskContext{}, err
	}
	segs, err := a.Segments(ctx, day)
	if err != nil {
		return ai.AskContext{}, err
	}

	evidence := make([]string, 0, len(segs))
	for _, seg := range segs {
		evidence = append(evidence, a.evidenceLine(seg))
	}
	return ai.AskContext{
		DateLabel:    day,
		DailySummary: summary,
		Cards:        cards,
		Evidence:     evidence,
	}, nil
}

func (a *Analyzer) evidenceLine(seg timeline.Segment) string {
	return fmt.Sprintf("%s-%s %s | %s (%s)",
		seg.Start.In(a.loc).Format("15:04"),
		seg.End.In(a.loc).Format("15:04"),
		seg.ProcessName,
		seg.WindowTitle,
		timeline.FormatDuration(seg.DurationSeconds))
}
