package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. CONTENTMARK_DATABASE_DSN.
const EnvPrefix = "CONTENTMARK"

// StateDir is the per-project directory holding config and outputs.
const StateDir = ".contentmark"

// Config represents the complete contentmark configuration
type Config struct {
	Version         int      `json:"version" mapstructure:"version" toml:"version"`
	SrcDir          string   `json:"srcDir" mapstructure:"srcDir" toml:"srcDir"`
	Include         []string `json:"include" mapstructure:"include" toml:"include"`
	Exclude         []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`
	MarkerAttribute string   `json:"markerAttribute" mapstructure:"markerAttribute" toml:"markerAttribute"`

	Output   OutputConfig   `json:"output" mapstructure:"output" toml:"output"`
	Schema   SchemaConfig   `json:"schema" mapstructure:"schema" toml:"schema"`
	Watch    WatchConfig    `json:"watch" mapstructure:"watch" toml:"watch"`
	Scan     ScanConfig     `json:"scan" mapstructure:"scan" toml:"scan"`
	Database DatabaseConfig `json:"database" mapstructure:"database" toml:"database"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging" toml:"logging"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics" toml:"metrics"`
}

// OutputConfig controls the persisted schema artifacts
type OutputConfig struct {
	Dir          string `json:"dir" mapstructure:"dir" toml:"dir"`
	Format       string `json:"format" mapstructure:"format" toml:"format"` // json, yaml
	Pretty       bool   `json:"pretty" mapstructure:"pretty" toml:"pretty"`
	Types        bool   `json:"types" mapstructure:"types" toml:"types"`
	TypesFile    string `json:"typesFile" mapstructure:"typesFile" toml:"typesFile"`
	HistoryLimit int    `json:"historyLimit" mapstructure:"historyLimit" toml:"historyLimit"`
}

// SchemaConfig controls schema generation
type SchemaConfig struct {
	Sort bool `json:"sort" mapstructure:"sort" toml:"sort"`
}

// WatchConfig contains watch mode settings
type WatchConfig struct {
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs" toml:"debounceMs"`
	// FlushOnStop rescans once for changes still debouncing at shutdown.
	FlushOnStop bool `json:"flushOnStop" mapstructure:"flushOnStop" toml:"flushOnStop"`
}

// Debounce returns the debounce delay as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// ScanConfig contains extraction settings. Concurrency 0 means one worker per CPU.
type ScanConfig struct {
	Concurrency int `json:"concurrency" mapstructure:"concurrency" toml:"concurrency"`
}

// DatabaseConfig contains the sync target
type DatabaseConfig struct {
	Driver        string `json:"driver" mapstructure:"driver" toml:"driver"` // sqlite, pgx
	DSN           string `json:"dsn" mapstructure:"dsn" toml:"dsn"`
	DeleteRemoved bool   `json:"deleteRemoved" mapstructure:"deleteRemoved" toml:"deleteRemoved"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"` // human, json
	Level  string `json:"level" mapstructure:"level" toml:"level"`
}

// MetricsConfig contains the Prometheus endpoint settings used by watch mode
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr" toml:"addr"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentVersion,
		SrcDir:          "src",
		Include:         []string{"**/*.tsx", "**/*.jsx"},
		Exclude:         []string{"**/node_modules/**", "**/*.test.*", "**/*.spec.*", "**/dist/**"},
		MarkerAttribute: "data-cms",
		Output: OutputConfig{
			Dir:          StateDir,
			Format:       "json",
			Pretty:       true,
			Types:        true,
			TypesFile:    "content.d.ts",
			HistoryLimit: 10,
		},
		Schema: SchemaConfig{
			Sort: true,
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
		Scan: ScanConfig{
			Concurrency: 0,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9464",
		},
	}
}

// setDefaults registers every key so env overrides apply even when no
// config file sets it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("srcDir", d.SrcDir)
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("markerAttribute", d.MarkerAttribute)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("output.types", d.Output.Types)
	v.SetDefault("output.typesFile", d.Output.TypesFile)
	v.SetDefault("output.historyLimit", d.Output.HistoryLimit)

	v.SetDefault("schema.sort", d.Schema.Sort)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)
	v.SetDefault("watch.flushOnStop", d.Watch.FlushOnStop)
	v.SetDefault("scan.concurrency", d.Scan.Concurrency)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.deleteRemoved", d.Database.DeleteRemoved)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// LoadConfig loads configuration from .contentmark/config.{json,toml,yaml}
// under root. A .env file in root is loaded first; CONTENTMARK_* variables
// override file values. A missing config file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load(filepath.Join(root, ".env"))

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(root, StateDir))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to .contentmark/config.toml
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, StateDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

var attributeName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_:-]*$`)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if strings.TrimSpace(c.SrcDir) == "" {
		return &ConfigError{Field: "srcDir", Message: "must not be empty"}
	}
	if len(c.Include) == 0 {
		return &ConfigError{Field: "include", Message: "at least one pattern is required"}
	}
	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			return &ConfigError{Field: "include", Message: fmt.Sprintf("invalid glob %q", p)}
		}
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return &ConfigError{Field: "exclude", Message: fmt.Sprintf("invalid glob %q", p)}
		}
	}
	if !attributeName.MatchString(c.MarkerAttribute) {
		return &ConfigError{Field: "markerAttribute", Message: fmt.Sprintf("invalid attribute name %q", c.MarkerAttribute)}
	}

	switch c.Output.Format {
	case "json", "yaml":
	default:
		return &ConfigError{Field: "output.format", Message: "must be json or yaml"}
	}
	if c.Output.Dir == "" {
		return &ConfigError{Field: "output.dir", Message: "must not be empty"}
	}
	if c.Output.Types && c.Output.TypesFile == "" {
		return &ConfigError{Field: "output.typesFile", Message: "required when output.types is set"}
	}
	if c.Output.HistoryLimit < 0 {
		return &ConfigError{Field: "output.historyLimit", Message: "must not be negative"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	if c.Scan.Concurrency < 0 {
		return &ConfigError{Field: "scan.concurrency", Message: "must not be negative"}
	}

	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return &ConfigError{Field: "database.driver", Message: "must be sqlite or pgx"}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}

	return nil
}

// SourceRoot resolves SrcDir against the project root.
func (c *Config) SourceRoot(root string) string {
	if filepath.IsAbs(c.SrcDir) {
		return c.SrcDir
	}
	return filepath.Join(root, c.SrcDir)
}

// OutputDir resolves Output.Dir against the project root.
func (c *Config) OutputDir(root string) string {
	if filepath.IsAbs(c.Output.Dir) {
		return c.Output.Dir
	}
	return filepath.Join(root, c.Output.Dir)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
