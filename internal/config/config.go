// Package config loads docmigrate's CLI configuration via viper, following
// the same project/user/home precedence chain and env-var binding style as
// BeadsLog's internal/config/config.go, renamed to the DOCMIGRATE_ prefix
// and trimmed to the settings a migration-kernel CLI actually needs:
// where snapshots/quarantine/transactions live, and how verbosely to log.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Call once at
// startup, before any Get* function.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from CWD to find a project .docmigrate/config.yaml, so
	//    commands work the same from any subdirectory of a project.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".docmigrate", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory (~/.config/docmigrate/config.yaml).
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "docmigrate", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.docmigrate/config.yaml).
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".docmigrate", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file, e.g.
	// DOCMIGRATE_SNAPSHOT_DIR, DOCMIGRATE_LOG_LEVEL.
	v.SetEnvPrefix("DOCMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("json", false)
	v.SetDefault("snapshot-dir", ".docmigrate/snapshots")
	v.SetDefault("quarantine-dir", "")
	v.SetDefault("transaction-dir", ".docmigrate/transactions")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")
	v.SetDefault("log-to-file", false)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading config file: %w", err)
		}
	}
	return nil
}

// ConfigSource names where a configuration value effectively came from.
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
	SourceFlag       ConfigSource = "flag"
)

// GetValueSource reports the source of a configuration value: env var >
// config file > default. Flag overrides are handled by the CLI layer,
// which already knows whether a flag was explicitly set.
func GetValueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}
	envKey := "DOCMIGRATE_" + strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(key, "-", "_"), ".", "_"))
	if os.Getenv(envKey) != "" {
		return SourceEnvVar
	}
	if v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value at runtime (used by the CLI layer
// to apply an explicitly-passed flag over whatever viper resolved).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// SnapshotDir resolves the configured snapshot directory, relative to cwd
// if not absolute.
func SnapshotDir() string { return resolvePath(GetString("snapshot-dir")) }

// QuarantineDir resolves the configured quarantine directory. Empty
// disables quarantine per spec.md §4.7.
func QuarantineDir() string {
	dir := GetString("quarantine-dir")
	if dir == "" {
		return ""
	}
	return resolvePath(dir)
}

// TransactionDir resolves the configured transaction-journal directory.
func TransactionDir() string { return resolvePath(GetString("transaction-dir")) }

func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
