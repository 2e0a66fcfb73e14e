package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/output"
)

var captureFormat string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture one sample and exit",
	Long: `Look up the focused window, record one screenshot or video chunk
according to the capture_mode setting, store it and print the sample.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureFormat, "format", "f", output.FormatText, "Output format: text, json or yaml")
}

func runCapture(cmd *cobra.Command, args []string) error {
	if !output.ValidFormat(captureFormat) {
		return fmt.Errorf("unknown format %q", captureFormat)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	capturer, err := a.Capturer(ctx)
	if err != nil {
		return err
	}
	sample, err := capturer.CaptureOnce(ctx)
	if err != nil {
		a.Logger.Error("capture.error", err.Error(), nil)
		return fmt.Errorf("capture failed: %w", err)
	}
	a.Logger.Info("capture.sample", "sample captured", map[string]any{"id": sample.ID, "bytes": sample.MediaSize})

	return output.Render(cmd.OutOrStdout(), captureFormat, output.NewSampleView(sample))
}
