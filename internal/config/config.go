// Package config loads the bootstrap configuration: where data lives, which
// database engine to use and how to capture. Live settings are in the
// store.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "DAYFLOW"
	FileName  = "dayflow.yaml"
)

// DefaultSettings seed the store's settings table on first run.
var DefaultSettings = map[string]string{
	"capture_interval_seconds":  "10",
	"capture_mode":              "screenshot",
	"ai_provider":               "none",
	"ai_model":                  "",
	"ai_api_key":                "",
	"ai_endpoint":               "",
	"analysis_interval_seconds": "900",
	"storage_limit_gb":          "8",
	"auto_cleanup":              "1",
	"retention_days":            "3",
}

type Config struct {
	DataDir  string            `yaml:"data_dir"`
	DB       DBConfig          `yaml:"db"`
	MediaDir string            `yaml:"media_dir"`
	EventLog string            `yaml:"event_log"`
	Capture  CaptureConfig     `yaml:"capture"`
	AI       AIConfig          `yaml:"ai"`
	Defaults map[string]string `yaml:"defaults"`
}

type DBConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type CaptureConfig struct {
	// Command overrides the platform capture tool. "{path}" is replaced by
	// the output file.
	Command           string `yaml:"command,omitempty"`
	VideoChunkSeconds int    `yaml:"video_chunk_seconds"`
}

type AIConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Dir is the default directory for the config file and data.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dayflow")
	}
	return filepath.Join(os.TempDir(), "dayflow")
}

func Default() *Config {
	dataDir := Dir()
	defaults := make(map[string]string, len(DefaultSettings))
	for k, v := range DefaultSettings {
		defaults[k] = v
	}
	return &Config{
		DataDir:  dataDir,
		DB:       DBConfig{Driver: "sqlite", Path: filepath.Join(dataDir, "dayflow.db")},
		MediaDir: filepath.Join(dataDir, "media"),
		EventLog: filepath.Join(dataDir, "events.jsonl"),
		Capture:  CaptureConfig{VideoChunkSeconds: 15},
		AI:       AIConfig{RequestTimeout: 240 * time.Second},
		Defaults: defaults,
	}
}

// Load reads path, or dayflow.yaml in Dir() when path is empty. A missing
// file yields defaults. DAYFLOW_* environment variables override both,
// e.g. DAYFLOW_DB_DRIVER=duckdb.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(Dir())
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("db.driver", def.DB.Driver)
	v.SetDefault("db.path", "")
	v.SetDefault("media_dir", "")
	v.SetDefault("event_log", "")
	v.SetDefault("capture.command", "")
	v.SetDefault("capture.video_chunk_seconds", def.Capture.VideoChunkSeconds)
	v.SetDefault("ai.request_timeout", def.AI.RequestTimeout)
	for k, val := range def.Defaults {
		v.SetDefault("defaults."+k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		DataDir:  v.GetString("data_dir"),
		DB:       DBConfig{Driver: strings.ToLower(v.GetString("db.driver")), Path: v.GetString("db.path")},
		MediaDir: v.GetString("media_dir"),
		EventLog: v.GetString("event_log"),
		Capture: CaptureConfig{
			Command:           v.GetString("capture.command"),
			VideoChunkSeconds: v.GetInt("capture.video_chunk_seconds"),
		},
		AI:       AIConfig{RequestTimeout: v.GetDuration("ai.request_timeout")},
		Defaults: make(map[string]string, len(def.Defaults)),
	}
	for k := range def.Defaults {
		cfg.Defaults[k] = v.GetString("defaults." + k)
	}

	// Paths left empty follow data_dir.
	if cfg.DB.Path == "" {
		cfg.DB.Path = filepath.Join(cfg.DataDir, "dayflow.db")
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = filepath.Join(cfg.DataDir, "media")
	}
	if cfg.EventLog == "" {
		cfg.EventLog = filepath.Join(cfg.DataDir, "events.jsonl")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "duckdb":
	default:
		return fmt.Errorf("db.driver must be sqlite or duckdb, got %q", c.DB.Driver)
	}
	if c.Capture.VideoChunkSeconds <= 0 {
		return fmt.Errorf("capture.video_chunk_seconds must be positive")
	}
	if c.AI.RequestTimeout <= 0 {
		return fmt.Errorf("ai.request_timeout must be positive")
	}
	return nil
}

// Write stores cfg as YAML at path, creating parent directories.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SettingKeys lists the known live setting keys in order.
func SettingKeys() []string {
	keys := make([]string, 0, len(DefaultSettings))
	for k := range DefaultSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
