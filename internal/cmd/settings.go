package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/config"
)

var settingsInitForce bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change live settings",
	Long: `Live settings are stored in the database and picked up by a running
dayflow on its next capture or analysis. Keys: ` + strings.Join(config.SettingKeys(), ", ") + `.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runSettingsInit,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsInitCmd)

	settingsInitCmd.Flags().BoolVar(&settingsInitForce, "force", false, "Overwrite an existing config file")
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		key := args[0]
		if err := checkSettingKey(key); err != nil {
			return err
		}
		value, err := a.Store.GetSetting(cmd.Context(), key, a.Config.Defaults[key])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	}

	all, err := a.Store.Settings(cmd.Context())
	if err != nil {
		return err
	}
	for _, key := range config.SettingKeys() {
		value, ok := all[key]
		if !ok {
			value = a.Config.Defaults[key]
		}
		if key == "ai_api_key" && value != "" {
			value = maskSecret(value)
		}
		fmt.Fprintf(out, "%s = %s\n", key, value)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := checkSettingKey(key); err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.SetSetting(cmd.Context(), key, value); err != nil {
		return err
	}
	a.Logger.Info("settings.changed", "setting updated", map[string]any{"key": key})
	fmt.Printf("Set %s\n", key)
	return nil
}

func runSettingsInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.Dir(), config.FileName)
	}

	if _, err := os.Stat(path); err == nil && !settingsInitForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func checkSettingKey(key string) error {
	if _, ok := config.DefaultSettings[key]; !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
