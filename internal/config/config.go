// Package config loads gitconf settings from gitconf.yaml and GITCONF_*
// environment variables.
//
// Precedence, highest first:
//  1. environment (GITCONF_LOG_LEVEL, GITCONF_REMOTE_DEFAULT, ...)
//  2. gitconf.yaml in the current directory
//  3. gitconf.yaml in $XDG_CONFIG_HOME/gitconf or ~/.config/gitconf
//  4. built-in defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "gitconf"
	envPrefix  = "GITCONF"
)

// Config holds everything the gitconf command reads from configuration
type Config struct {
	Remote   RemoteConfig   `mapstructure:"remote"`
	Author   AuthorConfig   `mapstructure:"author"`
	Progress bool           `mapstructure:"progress"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	Credentials []HostCredential `mapstructure:"credentials"`
}

// RemoteConfig defines remote defaults
type RemoteConfig struct {
	Default string        `mapstructure:"default"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 means no limit
}

// AuthorConfig signs commits. Empty fields fall back to git config.
type AuthorConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// SecurityConfig holds the per-handle safety switches
type SecurityConfig struct {
	SkipOwnerValidation    bool `mapstructure:"skip_owner_validation"`
	BypassCertificateCheck bool `mapstructure:"bypass_certificate_check"`
}

// LogConfig defines logging output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// MetricsConfig defines where metrics are written after a command
type MetricsConfig struct {
	// Textfile is a node_exporter textfile collector path; empty disables
	Textfile string `mapstructure:"textfile"`
}

// HostCredential selects how to authenticate against one host. Hosts
// without an entry use the GIT_* environment variables.
type HostCredential struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
	// TokenEnv names the environment variable holding an access token
	TokenEnv string `mapstructure:"token_env"`
	SSHKey   string `mapstructure:"ssh_key"`
}

// DefaultConfig provides default configuration values
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			Default: "origin",
		},
		Progress: true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("remote.default", d.Remote.Default)
	v.SetDefault("remote.timeout", d.Remote.Timeout)
	v.SetDefault("author.name", d.Author.Name)
	v.SetDefault("author.email", d.Author.Email)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("security.skip_owner_validation", d.Security.SkipOwnerValidation)
	v.SetDefault("security.bypass_certificate_check", d.Security.BypassCertificateCheck)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path, or searches the default locations
// when path is empty. A missing file in the search path is not an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(userConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.MergeDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.Set("remote.default", cfg.Remote.Default)
	v.Set("remote.timeout", cfg.Remote.Timeout.String())
	v.Set("author.name", cfg.Author.Name)
	v.Set("author.email", cfg.Author.Email)
	v.Set("progress", cfg.Progress)
	v.Set("security.skip_owner_validation", cfg.Security.SkipOwnerValidation)
	v.Set("security.bypass_certificate_check", cfg.Security.BypassCertificateCheck)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("metrics.textfile", cfg.Metrics.Textfile)
	if len(cfg.Credentials) > 0 {
		creds := make([]map[string]any, 0, len(cfg.Credentials))
		for _, c := range cfg.Credentials {
			creds = append(creds, map[string]any{
				"host":      c.Host,
				"username":  c.Username,
				"token_env": c.TokenEnv,
				"ssh_key":   c.SSHKey,
			})
		}
		v.Set("credentials", creds)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// UserConfigPath returns the per-user config file location
func UserConfigPath() string {
	return filepath.Join(userConfigDir(), configName+".yaml")
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", configName)
	}
	return filepath.Join(home, ".config", configName)
}

// MergeDefaults merges default values for unset fields
func (c *Config) MergeDefaults() {
	d := DefaultConfig()
	if c.Remote.Default == "" {
		c.Remote.Default = d.Remote.Default
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Remote.Default, " \t/") {
		return fmt.Errorf("invalid default remote %q", c.Remote.Default)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote timeout cannot be negative")
	}
	if c.Author.Email != "" && c.Author.Name == "" {
		return fmt.Errorf("author name is required when author email is set")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, expected text or json", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Credentials))
	for i, cred := range c.Credentials {
		switch {
		case cred.Host == "":
			return fmt.Errorf("credentials[%d]: host is required", i)
		case seen[cred.Host]:
			return fmt.Errorf("credentials[%d]: duplicate host %q", i, cred.Host)
		case cred.TokenEnv != "" && cred.SSHKey != "":
			return fmt.Errorf("credentials[%d]: token_env and ssh_key are mutually exclusive", i)
		}
		seen[cred.Host] = true
	}
	return nil
}

// ParseLevel converts a level name to a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}
