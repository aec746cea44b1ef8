// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with TOML as the file format.
//
// Configuration is loaded from ~/.config/borgbridge/config.toml (or XDG equivalent on Linux,
// ~/Library/Application Support/borgbridge/config.toml on macOS, %APPDATA%\borgbridge\config.toml
// on Windows). The file carries the engine binary path, the environment file, an [options]
// table layered under every command, per-command [defaults.<command>] tables, and the SSH
// front end settings. Every key can be overridden through BORGBRIDGE_* environment variables.
package config
