package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askDay string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about a day",
	Long: `Answer a question using the day's timeline cards, summary and captured
activity as context. Requires an AI provider.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askDay, "day", "d", "", "Day as YYYY-MM-DD (default: today)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	day, err := resolveDay(askDay, a.Location())
	if err != nil {
		return err
	}

	answer, err := a.Analyzer.Ask(cmd.Context(), day, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}
