package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/store"
)

var (
	cleanupOlderThan int
	cleanupLimitGB   float64
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the oldest samples to free disk space",
	Long: `Delete the oldest samples and their media until usage is under the
storage limit (storage_limit_gb by default). With --older-than, also delete
every sample older than that many days.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupOlderThan, "older-than", 0, "Also delete samples older than this many days (0 = skip)")
	cleanupCmd.Flags().Float64Var(&cleanupLimitGB, "limit-gb", 0, "Storage limit in GB (default: storage_limit_gb setting)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	limit := int64(cleanupLimitGB * (1 << 30))
	if cleanupLimitGB == 0 {
		if limit, err = a.Retention.LimitBytes(ctx); err != nil {
			return err
		}
	}

	before, err := a.Store.TotalMediaBytes(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Media usage: %s\n", formatBytes(before))

	if limit <= 0 {
		fmt.Println("Storage limit disabled")
	} else {
		removed, err := a.Retention.Enforce(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to enforce storage limit: %w", err)
		}
		printRemoval("storage limit "+formatBytes(limit), removed)
	}

	if cleanupOlderThan > 0 {
		removed, err := a.Retention.PurgeOlderThan(ctx, cleanupOlderThan)
		if err != nil {
			return fmt.Errorf("failed to purge old samples: %w", err)
		}
		printRemoval(fmt.Sprintf("older than %d days", cleanupOlderThan), removed)
	}
	return nil
}

func printRemoval(label string, r store.Removal) {
	fmt.Printf("  - %s: removed %d samples (%s)\n", label, r.Samples, formatBytes(r.Bytes))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
