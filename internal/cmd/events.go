package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/observability"
)

var (
	eventsType  string
	eventsLevel string
	eventsSince time.Duration
	eventsLimit int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent entries from the event log",
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().StringVarP(&eventsType, "type", "t", "", "Only events of this type, e.g. analysis.failed")
	eventsCmd.Flags().StringVarP(&eventsLevel, "level", "l", "", "Only events at this level: INFO, WARN or ERROR")
	eventsCmd.Flags().DurationVar(&eventsSince, "since", 24*time.Hour, "How far back to look")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 50, "Show at most this many events (0 = all)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.EventLog()
	if log == nil {
		return fmt.Errorf("event log %s is not available", a.Config.EventLog)
	}

	filter := observability.Filter{
		Type:  eventsType,
		Level: strings.ToUpper(eventsLevel),
		Limit: eventsLimit,
	}
	if eventsSince > 0 {
		filter.Since = time.Now().Add(-eventsSince)
	}
	entries, err := log.Read(filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		line := fmt.Sprintf("%s %-5s %-18s %s", e.Time.In(a.Location()).Format("2006-01-02 15:04:05"), e.Level, e.Type, e.Message)
		if len(e.Data) > 0 {
			line += " " + formatData(e.Data)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := json.Marshal(data[k])
		if err != nil {
			v = []byte(fmt.Sprint(data[k]))
		}
		parts = append(parts, k+"="+string(v))
	}
	return strings.Join(parts, " ")
}
