package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/analyzer"
	"github.com/strrl/dayflow/internal/timeline"
)

var (
	analyzeDay       string
	analyzeIfPending bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Turn a day's captures into timeline cards",
	Long: `Send a downsampled set of the day's completed samples to the configured
AI provider and replace the day's timeline cards with the result. With
ai_provider set to none, the day's activity segments are shown instead and
nothing is stored.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeDay, "day", "d", "", "Day to analyze as YYYY-MM-DD (default: today)")
	analyzeCmd.Flags().BoolVar(&analyzeIfPending, "if-pending", false, "Only analyze when new samples arrived since the last batch")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := resolveDay(analyzeDay, a.Location())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if analyzeIfPending {
		pending, err := a.Analyzer.Pending(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to check pending samples: %w", err)
		}
		if !pending {
			fmt.Printf("No new samples for %s since the last analysis\n", day)
			return nil
		}
	}

	fmt.Printf("Analyzing %s\n", day)
	outcome, err := a.Analyzer.Analyze(ctx, day)
	switch {
	case errors.Is(err, analyzer.ErrNoData):
		fmt.Printf("No completed samples for %s\n", day)
		return nil
	case err != nil:
		return fmt.Errorf("analysis failed: %w", err)
	}

	if outcome.Mode == analyzer.ModeFallback {
		fmt.Printf("No AI provider configured; %d activity segments:\n", len(outcome.Segments))
		for _, seg := range outcome.Segments {
			fmt.Printf("  - %s-%s %s | %s (%s)\n",
				seg.Start.In(a.Location()).Format("15:04"), seg.End.In(a.Location()).Format("15:04"),
				seg.ProcessName, seg.WindowTitle, timeline.FormatDuration(seg.DurationSeconds))
		}
		return nil
	}

	fmt.Printf("Batch %s completed\n", outcome.BatchID)
	fmt.Printf("  - %d cards stored\n", len(outcome.Cards))
	fmt.Printf("  - %d cards dropped by validation\n", outcome.Dropped)
	if outcome.DailySummary != "" {
		fmt.Printf("Summary: %s\n", outcome.DailySummary)
	}
	return nil
}
