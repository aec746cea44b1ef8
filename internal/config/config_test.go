// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"borgbridge/pkg/flags"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "warning" {
		t.Errorf("expected default log level to be warning, got %s", cfg.LogLevel)
	}
	if cfg.LogJSON {
		t.Error("expected log_json to be false by default")
	}
	if cfg.Engine.Binary != "" {
		t.Errorf("expected engine binary to be empty, got %q", cfg.Engine.Binary)
	}
	if cfg.SSH.Enabled {
		t.Error("expected SSH front end to be disabled by default")
	}
	if cfg.SSH.Listen != "localhost:2222" {
		t.Errorf("expected default SSH listen address, got %q", cfg.SSH.Listen)
	}
	if len(cfg.Defaults) != 0 {
		t.Errorf("expected no command defaults, got %v", cfg.Defaults)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG resolution only applies on linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	expected := filepath.Join("/tmp/test-xdg-config", AppName)
	if dir != expected {
		t.Errorf("ConfigDir() = %s, want %s", dir, expected)
	}
}

func TestConfigDirOverride(t *testing.T) {
	t.Cleanup(Reset)

	SetConfigDirOverride("/tmp/borgbridge-test-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if dir != "/tmp/borgbridge-test-config" {
		t.Errorf("ConfigDir() = %s, want override", dir)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.LogLevel != "warning" {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_ExplicitFileNotFound(t *testing.T) {
	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.toml"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	content := `log_level = "debug"
log_json = true
env_file = "/srv/backup/.env"

[engine]
binary = "/usr/local/bin/borg"

[options]
lock_wait = 10

[defaults.create]
compression = "lz4"
exclude = ["*.tmp", "*.cache"]

[ssh]
enabled = true
listen = "0.0.0.0:2222"
token = "s3cret"
restrict_to_paths = ["/srv/repos"]
`
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("expected log_json to be true")
	}
	if cfg.Engine.Binary != "/usr/local/bin/borg" {
		t.Errorf("engine.binary = %q", cfg.Engine.Binary)
	}
	if cfg.Options["lock_wait"] == nil {
		t.Error("expected [options] lock_wait to be present")
	}
	if cfg.Defaults["create"]["compression"] != "lz4" {
		t.Errorf("defaults.create.compression = %v", cfg.Defaults["create"]["compression"])
	}
	if !cfg.SSH.Enabled || cfg.SSH.Token != "s3cret" {
		t.Errorf("ssh section not loaded: %+v", cfg.SSH)
	}
	if len(cfg.SSH.RestrictToPaths) != 1 || cfg.SSH.RestrictToPaths[0] != "/srv/repos" {
		t.Errorf("restrict_to_paths = %v", cfg.SSH.RestrictToPaths)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BORGBRIDGE_LOG_LEVEL", "info")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want env override info", cfg.LogLevel)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(`log_level = "loud"`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("expected ErrInvalidLogLevel, got %v", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "unknown defaults command",
			mutate:  func(c *Config) { c.Defaults = map[string]map[string]any{"teleport": {}} },
			wantErr: ErrInvalidDefaultsTable,
		},
		{
			name: "known defaults command",
			mutate: func(c *Config) {
				c.Defaults = map[string]map[string]any{"create": {"compression": "lz4"}}
			},
		},
		{
			name: "ssh enabled without token",
			mutate: func(c *Config) {
				c.SSH.Enabled = true
				c.SSH.Token = ""
			},
			wantErr: ErrInvalidSSHConfig,
		},
		{
			name: "ssh enabled without listen",
			mutate: func(c *Config) {
				c.SSH.Enabled = true
				c.SSH.Token = "s3cret"
				c.SSH.Listen = ""
			},
			wantErr: ErrInvalidSSHConfig,
		},
		{
			name: "ssh enabled and complete",
			mutate: func(c *Config) {
				c.SSH.Enabled = true
				c.SSH.Token = "s3cret"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() returned error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommandDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CommandDefaults() != nil {
		t.Error("expected nil defaults when no tables configured")
	}

	cfg.Defaults = map[string]map[string]any{
		"create": {"compression": "lz4"},
		"prune":  {"keep_daily": 7},
	}
	defaults := cfg.CommandDefaults()
	if len(defaults) != 2 {
		t.Fatalf("expected 2 command tables, got %d", len(defaults))
	}
	if defaults[flags.CmdCreate]["compression"] != "lz4" {
		t.Errorf("create defaults = %v", defaults[flags.CmdCreate])
	}
}

func TestCommonOptions(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CommonOptions() != nil {
		t.Error("expected nil common options when table is empty")
	}

	cfg.Options = map[string]any{"lock_wait": 10}
	opts := cfg.CommonOptions()
	if opts["lock_wait"] != 10 {
		t.Errorf("lock_wait = %v", opts["lock_wait"])
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	SetConfigDirOverride(dir)

	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Engine.Binary = "/opt/borg/bin/borg"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() returned error: %v", err)
	}

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("log_level = %q after reload, want debug", loaded.LogLevel)
	}
	if loaded.Engine.Binary != "/opt/borg/bin/borg" {
		t.Errorf("engine.binary = %q after reload", loaded.Engine.Binary)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	SetConfigDirOverride(dir)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() returned error: %v", err)
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if !fileExists(path) {
		t.Fatalf("expected config file at %s", path)
	}

	// A second call must not clobber an existing file.
	if err := os.WriteFile(path, []byte(`log_level = "debug"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `log_level = "debug"` {
		t.Error("expected existing config file to be left untouched")
	}
}
