package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version this build reads.
const CurrentVersion = 1

// Dir is the per-project directory holding config.json.
const Dir = ".symtrail"

// EnvPrefix prefixes environment overrides, e.g. SYMTRAIL_INDEX_DEBOUNCEMS.
const EnvPrefix = "SYMTRAIL"

// Config is the complete symtrail configuration.
type Config struct {
	Version   int             `json:"version" toml:"version" mapstructure:"version"`
	Index     IndexConfig     `json:"index" toml:"index" mapstructure:"index"`
	Watch     WatchConfig     `json:"watch" toml:"watch" mapstructure:"watch"`
	Logging   LoggingConfig   `json:"logging" toml:"logging" mapstructure:"logging"`
	History   HistoryConfig   `json:"history" toml:"history" mapstructure:"history"`
	Telemetry TelemetryConfig `json:"telemetry" toml:"telemetry" mapstructure:"telemetry"`
}

// IndexConfig controls the structure indexer.
type IndexConfig struct {
	Languages    []string `json:"languages" toml:"languages" mapstructure:"languages"`
	DebounceMs   int      `json:"debounceMs" toml:"debounceMs" mapstructure:"debounceMs"`
	MaxFileBytes int      `json:"maxFileBytes" toml:"maxFileBytes" mapstructure:"maxFileBytes"`
	Complexity   bool     `json:"complexity" toml:"complexity" mapstructure:"complexity"`
}

// Debounce returns DebounceMs as a duration.
func (c IndexConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// WatchConfig controls the filesystem watcher used by `symtrail watch`.
type WatchConfig struct {
	IgnorePatterns []string `json:"ignorePatterns" toml:"ignorePatterns" mapstructure:"ignorePatterns"`
	Extensions     []string `json:"extensions" toml:"extensions" mapstructure:"extensions"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" toml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" toml:"file,omitempty" mapstructure:"file"`
}

// HistoryConfig controls the optional sqlite mirror of the history log.
type HistoryConfig struct {
	DatabasePath string `json:"databasePath,omitempty" toml:"databasePath,omitempty" mapstructure:"databasePath"`
}

// TelemetryConfig controls the Prometheus endpoint. Empty MetricsAddr disables it.
type TelemetryConfig struct {
	MetricsAddr string `json:"metricsAddr,omitempty" toml:"metricsAddr,omitempty" mapstructure:"metricsAddr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Index: IndexConfig{
			Languages:    []string{"typescript", "javascript", "typescriptreact", "javascriptreact"},
			DebounceMs:   250,
			MaxFileBytes: 1 << 20,
			Complexity:   true,
		},
		Watch: WatchConfig{
			IgnorePatterns: []string{"node_modules", ".git", "dist", "build", "coverage", "*.min.js", "*.d.ts"},
			Extensions:     []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads <root>/.symtrail/config.json, layered over defaults and under
// SYMTRAIL_* environment overrides. A .env file in root is read first if present.
// A missing config file is not an error.
func LoadConfig(root string) (*Config, error) {
	if err := loadDotEnv(root); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, Dir))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return unmarshal(v)
}

// LoadFile loads an explicit config file. Files ending in .toml are decoded with
// BurntSushi/toml; anything else goes through viper.
func LoadFile(path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadTOML(path)
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadTOML decodes a TOML config over the defaults.
func LoadTOML(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to <root>/.symtrail/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// SaveTOML writes the configuration as TOML to path.
func (c *Config) SaveTOML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Index.DebounceMs < 0 {
		return &ConfigError{Field: "index.debounceMs", Message: "must not be negative"}
	}
	if c.Index.MaxFileBytes <= 0 {
		return &ConfigError{Field: "index.maxFileBytes", Message: "must be positive"}
	}
	if len(c.Index.Languages) == 0 {
		return &ConfigError{Field: "index.languages", Message: "at least one language is required"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "off", "none", "":
	default:
		return &ConfigError{Field: "logging.level", Message: "unknown level " + c.Logging.Level}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("index.languages", d.Index.Languages)
	v.SetDefault("index.debounceMs", d.Index.DebounceMs)
	v.SetDefault("index.maxFileBytes", d.Index.MaxFileBytes)
	v.SetDefault("index.complexity", d.Index.Complexity)
	v.SetDefault("watch.ignorePatterns", d.Watch.IgnorePatterns)
	v.SetDefault("watch.extensions", d.Watch.Extensions)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("history.databasePath", d.History.DatabasePath)
	v.SetDefault("telemetry.metricsAddr", d.Telemetry.MetricsAddr)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(root string) error {
	err := godotenv.Load(filepath.Join(root, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
