package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/app"
	"github.com/strrl/dayflow/internal/config"
	"github.com/strrl/dayflow/internal/timeline"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dayflow",
	Short: "Record your screen activity and turn it into a daily timeline",
	Long: `dayflow captures a screenshot or short video chunk at a fixed interval,
asks an AI provider to summarize each day into timeline cards, and keeps
media usage under a storage budget.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = false
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: "+config.FileName+" in the user config directory)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}
	return a, nil
}

// resolveDay returns day as a validated YYYY-MM-DD key, or today when empty.
func resolveDay(day string, loc *time.Location) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" || day == "today" {
		return timeline.DayKey(time.Now(), loc), nil
	}
	if day == "yesterday" {
		return timeline.DayKey(time.Now().AddDate(0, 0, -1), loc), nil
	}
	if _, err := timeline.ParseDay(day, loc); err != nil {
		return "", fmt.Errorf("invalid day %q: use YYYY-MM-DD, today or yesterday", day)
	}
	return day, nil
}
