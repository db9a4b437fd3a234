// Package config provides configuration management for cidev.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CIDEV_ prefix, dots and dashes become underscores)
//  3. Config file (.cidev.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/cidev/internal/github"
	"github.com/hupe1980/cidev/internal/homebrew"
	"github.com/hupe1980/cidev/internal/lockfile"
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

// DefaultBaseBranch is the branch release pull requests target.
const DefaultBaseBranch = "master"

// Config represents the global configuration for cidev.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	Lock     LockConfig     `mapstructure:"lock" json:"lock"`
	GitHub   GitHubConfig   `mapstructure:"github" json:"github"`
	Homebrew HomebrewConfig `mapstructure:"homebrew" json:"homebrew"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// LockConfig configures the lock-file filter.
type LockConfig struct {
	// File is the lock file to filter.
	File string `mapstructure:"file" json:"file"`

	// Remove lists the package names to strip.
	Remove []string `mapstructure:"remove" json:"remove"`
}

// GitHubConfig configures the GitHub REST client.
type GitHubConfig struct {
	APIURL     string `mapstructure:"api-url" json:"apiUrl"`
	BaseBranch string `mapstructure:"base-branch" json:"baseBranch"`
}

// HomebrewConfig configures the formula updater.
type HomebrewConfig struct {
	Formula string `mapstructure:"formula" json:"formula"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		Lock: LockConfig{
			File:   "Cargo.lock",
			Remove: append([]string(nil), lockfile.DefaultRemovalSet...),
		},
		GitHub: GitHubConfig{
			APIURL:     github.DefaultAPIURL,
			BaseBranch: DefaultBaseBranch,
		},
		Homebrew: HomebrewConfig{
			Formula: homebrew.DefaultFormulaPath,
		},
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

	if strings.TrimSpace(c.Lock.File) == "" {
		return errors.New("invalid lock.file: must not be empty")
	}

	for _, name := range c.Lock.Remove {
		if strings.TrimSpace(name) == "" {
			return errors.New("invalid lock.remove: package names must not be empty")
		}
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
	v.SetDefault("no-color", d.NoColor)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("lock.file", d.Lock.File)
	v.SetDefault("lock.remove", d.Lock.Remove)
	v.SetDefault("github.api-url", d.GitHub.APIURL)
	v.SetDefault("github.base-branch", d.GitHub.BaseBranch)
	v.SetDefault("homebrew.formula", d.Homebrew.Formula)
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("CIDEV")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
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

	v.SetConfigName(".cidev")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "cidev"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// flagKeys maps subcommand flag names onto nested config keys.
var flagKeys = map[string]string{
	"file":         "lock.file",
	"package":      "lock.remove",
	"api-url":      "github.api-url",
	"base":         "github.base-branch",
	"formula-path": "homebrew.formula",
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
// Flags listed in flagKeys are additionally bound to their nested key.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	var bindErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}

		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("binding flag %q: %w", f.Name, err)
		}
	})

	if bindErr != nil {
		return bindErr
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
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
