package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/aggregator"
	"github.com/strrl/dayflow/internal/output"
)

var (
	timelineDay    string
	timelineFormat string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show a day's timeline",
	Long: `Print the day's timeline cards and summary, or its activity segments
when the day has not been analyzed, with time spent per category and app.`,
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().StringVarP(&timelineDay, "day", "d", "", "Day as YYYY-MM-DD (default: today)")
	timelineCmd.Flags().StringVarP(&timelineFormat, "format", "f", output.FormatText, "Output format: text, json or yaml")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	if !output.ValidFormat(timelineFormat) {
		return fmt.Errorf("unknown format %q", timelineFormat)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := resolveDay(timelineDay, a.Location())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cards, err := a.Store.CardsForDay(ctx, day)
	if err != nil {
		return err
	}
	summary, err := a.Store.DailySummary(ctx, day)
	if err != nil {
		return err
	}
	segs, err := a.Analyzer.Segments(ctx, day)
	if err != nil {
		return err
	}

	view := output.NewDayView(day, summary, cards, segs, aggregator.NewAggregator(aggregator.DefaultConfig()))
	return output.Render(cmd.OutOrStdout(), timelineFormat, view)
}
