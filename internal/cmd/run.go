package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/app"
	"github.com/strrl/dayflow/internal/events"
	"github.com/strrl/dayflow/internal/monitor"
	"github.com/strrl/dayflow/internal/scheduler"
	"github.com/strrl/dayflow/internal/timeline"
)

var runTUI bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture, analyze and clean up continuously",
	Long: `Start the capture loop together with the periodic analysis and
retention loops. Runs until interrupted, or until you quit the monitor
when --tui is set.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live terminal monitor")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runTUI {
		return a.Run(ctx, monitorForeground(a))
	}

	fmt.Printf("Recording to %s (db: %s)\n", a.Config.MediaDir, a.Config.DB.Driver)
	fmt.Println("Press Ctrl+C to stop")
	return a.Run(ctx, printForeground(a))
}

func monitorForeground(a *app.App) app.Foreground {
	return func(ctx context.Context, sched *scheduler.Scheduler) error {
		actions := monitor.Actions{
			CaptureNow: func() error {
				sample, err := sched.CaptureOnce(ctx)
				if err != nil {
					return err
				}
				a.Bus.Publish(events.SampleCaptured{Sample: sample})
				return nil
			},
			AnalyzeNow: func() error {
				_, err := a.Analyzer.Analyze(ctx, timeline.DayKey(time.Now(), a.Location()))
				return err
			},
		}
		model := monitor.New(a.Bus, actions, monitor.DefaultPoll, a.Location())
		_, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
}

func printForeground(a *app.App) app.Foreground {
	return func(ctx context.Context, _ *scheduler.Scheduler) error {
		for {
			select {
			case <-ctx.Done():
				fmt.Println("Stopping...")
				return nil
			case <-a.Bus.Ready():
			}
			for _, e := range a.Bus.Drain() {
				fmt.Println(describeEvent(e, a.Location()))
			}
		}
	}
}

func describeEvent(e events.Event, loc *time.Location) string {
	switch ev := e.(type) {
	case events.SampleCaptured:
		return fmt.Sprintf("%s captured #%d %s | %s (%d bytes)",
			ev.Sample.CapturedAt.In(loc).Format("15:04:05"), ev.Sample.ID,
			ev.Sample.ProcessName, ev.Sample.WindowTitle, ev.Sample.MediaSize)
	case events.CaptureFailed:
		return fmt.Sprintf("%s capture failed: %v", ev.At.In(loc).Format("15:04:05"), ev.Err)
	case events.AnalysisDone:
		return fmt.Sprintf("analysis %s: %d cards, %d dropped", ev.Day, ev.Cards, ev.Dropped)
	case events.AnalysisFailed:
		return fmt.Sprintf("analysis %s failed: %v", ev.Day, ev.Err)
	case events.RetentionDone:
		return fmt.Sprintf("cleanup (%s): removed %d samples, %d bytes", ev.Reason, ev.Removed.Samples, ev.Removed.Bytes)
	case events.RetentionFailed:
		return fmt.Sprintf("cleanup (%s) failed: %v", ev.Reason, ev.Err)
	default:
		return fmt.Sprintf("%s event", e.Source())
	}
}
