// Package config provides configuration management for devreload.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DEVRELOAD_ prefix)
//  3. Config file (.devreload.yaml)
//  4. Built-in defaults
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Supported change detection strategies.
const (
	StrategyAuto  = "auto"
	StrategyEvent = "event"
	StrategyPoll  = "poll"
)

// Serve defaults.
const (
	DefaultPort           = 8000
	DefaultEndpoint       = "/reload"
	DefaultDebounce       = time.Second
	DefaultPollInterval   = 2 * time.Second
	DefaultClientInterval = 1500 * time.Millisecond
)

// DefaultExtensions lists the file suffixes watched when none are configured:
// markup, stylesheets, scripts and structured data.
var DefaultExtensions = []string{".html", ".css", ".js", ".json"}

// Config represents the global configuration for devreload.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat" yaml:"log-format"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet" yaml:"quiet"`

	// Root is the directory that is served and watched.
	// An empty value means the current working directory.
	Root string `mapstructure:"root" json:"root" yaml:"root"`

	// Host is the interface to bind. Empty binds all interfaces.
	Host string `mapstructure:"host" json:"host" yaml:"host"`

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int `mapstructure:"port" json:"port" yaml:"port"`

	// Extensions is the watched file suffix allowlist.
	Extensions []string `mapstructure:"ext" json:"ext" yaml:"ext"`

	// Debounce is the minimum interval between two accepted change episodes.
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`

	// PollInterval is the rescan period of the polling detector.
	PollInterval time.Duration `mapstructure:"poll-interval" json:"pollInterval" yaml:"poll-interval"`

	// ClientInterval is how often the injected script polls the endpoint.
	ClientInterval time.Duration `mapstructure:"client-interval" json:"clientInterval" yaml:"client-interval"`

	// Strategy selects the change detector: auto, event or poll.
	Strategy string `mapstructure:"strategy" json:"strategy" yaml:"strategy"`

	// Endpoint is the path of the reload-status endpoint.
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// Announce enables a best-effort request to the own status endpoint
	// after every accepted change.
	Announce bool `mapstructure:"announce" json:"announce" yaml:"announce"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `mapstructure:"metrics" json:"metrics" yaml:"metrics"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-" yaml:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:       LogLevelInfo,
		LogFormat:      LogFormatText,
		Quiet:          false,
		Port:           DefaultPort,
		Extensions:     append([]string(nil), DefaultExtensions...),
		Debounce:       DefaultDebounce,
		PollInterval:   DefaultPollInterval,
		ClientInterval: DefaultClientInterval,
		Strategy:       StrategyAuto,
		Endpoint:       DefaultEndpoint,
		Metrics:        true,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	switch c.Strategy {
	case StrategyAuto, StrategyEvent, StrategyPoll:
		// valid
	default:
		return fmt.Errorf("invalid strategy %q: must be one of auto, event, poll", c.Strategy)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 0 and 65535", c.Port)
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one watched extension is required")
	}

	for name, d := range map[string]time.Duration{
		"debounce":        c.Debounce,
		"poll-interval":   c.PollInterval,
		"client-interval": c.ClientInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s %s: must be positive", name, d)
		}
	}

	if !strings.HasPrefix(c.Endpoint, "/") || c.Endpoint == "/" {
		return fmt.Errorf("invalid endpoint %q: must be an absolute path other than /", c.Endpoint)
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Extensions = splitExtensions(cfg.Extensions)

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("root", d.Root)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("ext", d.Extensions)
	v.SetDefault("debounce", d.Debounce)
	v.SetDefault("poll-interval", d.PollInterval)
	v.SetDefault("client-interval", d.ClientInterval)
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("announce", d.Announce)
	v.SetDefault("metrics", d.Metrics)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("DEVRELOAD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".devreload")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "devreload"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// splitExtensions flattens comma separated entries, which is how a single
// environment variable such as DEVRELOAD_EXT=html,css arrives.
func splitExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))

	for _, e := range exts {
		for _, part := range strings.Split(e, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
