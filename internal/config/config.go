// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads Ringwork configuration from defaults, YAML files,
// RINGWORK_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Language string         `mapstructure:"language" yaml:"language"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// ServerConfig controls the HTTP server started by `ringwork serve`.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	Quiet           bool          `mapstructure:"quiet" yaml:"quiet"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// SessionConfig controls issued login sessions and their cookies.
type SessionConfig struct {
	TTL          time.Duration `mapstructure:"ttl" yaml:"ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`
	CookieSecure bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`
}

// Defaults returns the built-in default values keyed by their viper path.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":           "sqlite",
		"database.dsn":            "./ringwork.db",
		"language":                "en",
		"log.level":               "info",
		"log.format":              "text",
		"server.listen_addr":      "0.0.0.0:8000",
		"server.quiet":            true,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.shutdown_timeout": "1s",
		"session.ttl":             "168h",
		"session.reap_interval":   "5m",
		"session.cookie_secure":   false,
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	dir, err := configDir(system)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ringwork.yaml"), nil
}

// configDir returns the directory holding Ringwork's configuration and, for
// the user variant, the terminal client's state.
func configDir(system bool) (string, error) {
	if system {
		switch runtime.GOOS {
		case "windows":
			return filepath.Join(os.Getenv("ProgramData"), "Ringwork"), nil
		default:
			return "/etc/ringwork", nil
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, "ringwork"), nil
}

// UserDir returns the per-user configuration directory.
func UserDir() (string, error) {
	return configDir(false)
}

// LoadConfig resolves a configuration of type T. When no config file was
// found the fully populated value is returned together with a
// viper.ConfigFileNotFoundError so callers can write a default file.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("ringwork")
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &nf):
			notFound = nf
		case explicitPath == nil && isEmptyConfig(v.ConfigFileUsed()):
			// An empty candidate file counts as no file.
			notFound = viper.ConfigFileNotFoundError{}
		default:
			return c, err
		}
	}

	v.SetEnvPrefix("ringwork")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, notFound
}

func isEmptyConfig(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() == 0
}

// WriteConfigFile writes c to the user (or system) config path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the DSN may carry database credentials.
	return os.WriteFile(path, data, 0o600)
}
