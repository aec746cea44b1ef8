// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"borgbridge/pkg/flags"
)

var (
	// ErrInvalidLogLevel is returned when a log level name is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidDefaultsTable is returned when a [defaults.<command>] table
	// names a command the registry does not know.
	ErrInvalidDefaultsTable = errors.New("invalid defaults table")
	// ErrInvalidSSHConfig is returned when the SSH front end settings are incomplete.
	ErrInvalidSSHConfig = errors.New("invalid ssh config")
)

// logLevels are the accepted values for log_level.
var logLevels = map[string]bool{
	"critical": true,
	"error":    true,
	"warning":  true,
	"info":     true,
	"debug":    true,
}

type (
	// Config is the root configuration.
	Config struct {
		// LogLevel is the minimum severity captured from the log channels.
		LogLevel string `mapstructure:"log_level" toml:"log_level"`
		// LogJSON requests structured log output from the engine.
		LogJSON bool `mapstructure:"log_json" toml:"log_json"`
		// EnvFile is a dotenv file loaded into the process environment
		// before the first invocation. Empty means no file.
		EnvFile string `mapstructure:"env_file" toml:"env_file,omitempty"`
		// Engine selects and locates the archiving engine.
		Engine EngineConfig `mapstructure:"engine" toml:"engine"`
		// Options is layered under every command, lowest precedence.
		Options map[string]any `mapstructure:"options" toml:"options,omitempty"`
		// Defaults holds per-command option tables, keyed by command name.
		Defaults map[string]map[string]any `mapstructure:"defaults" toml:"defaults,omitempty"`
		// SSH configures the repository-serving SSH front end.
		SSH SSHConfig `mapstructure:"ssh" toml:"ssh"`
	}

	// EngineConfig locates the engine binary.
	EngineConfig struct {
		// Binary is the path to the engine executable. Empty means look up
		// the default name on PATH.
		Binary string `mapstructure:"binary" toml:"binary,omitempty"`
	}

	// SSHConfig holds the SSH front end settings.
	SSHConfig struct {
		// Enabled turns the front end on.
		Enabled bool `mapstructure:"enabled" toml:"enabled"`
		// Listen is the host:port to bind.
		Listen string `mapstructure:"listen" toml:"listen,omitempty"`
		// HostKeyPath is where the server host key lives; generated when missing.
		HostKeyPath string `mapstructure:"host_key" toml:"host_key,omitempty"`
		// Token is the shared secret clients authenticate with.
		Token string `mapstructure:"token" toml:"token,omitempty"`
		// RestrictToPaths limits served repositories to these path prefixes.
		RestrictToPaths []string `mapstructure:"restrict_to_paths" toml:"restrict_to_paths,omitempty"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "warning",
		SSH: SSHConfig{
			Listen: "localhost:2222",
		},
	}
}

// Validate checks the configuration for constraints the TOML grammar cannot
// express.
func (c *Config) Validate() error {
	if c.LogLevel != "" && !logLevels[c.LogLevel] {
		return fmt.Errorf("%w: %q (want critical, error, warning, info or debug)", ErrInvalidLogLevel, c.LogLevel)
	}
	for name := range c.Defaults {
		if !flags.Command(name).Known() {
			return fmt.Errorf("%w: unknown command %q", ErrInvalidDefaultsTable, name)
		}
	}
	if c.SSH.Enabled {
		if strings.TrimSpace(c.SSH.Listen) == "" {
			return fmt.Errorf("%w: listen address required", ErrInvalidSSHConfig)
		}
		if strings.TrimSpace(c.SSH.Token) == "" {
			return fmt.Errorf("%w: token required", ErrInvalidSSHConfig)
		}
	}
	return nil
}

// CommandDefaults converts the raw [defaults.*] tables into typed registry
// seed values.
func (c *Config) CommandDefaults() map[flags.Command]flags.Options {
	if len(c.Defaults) == 0 {
		return nil
	}
	out := make(map[flags.Command]flags.Options, len(c.Defaults))
	for name, table := range c.Defaults {
		out[flags.Command(name)] = flags.Options(table)
	}
	return out
}

// CommonOptions converts the [options] table into the layer applied under
// every command.
func (c *Config) CommonOptions() flags.Options {
	if len(c.Options) == 0 {
		return nil
	}
	return flags.Options(c.Options)
}
