// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions narrows where the bridge configuration is read from. The zero
// value means the default search: the borgbridge config directory, then
// BORGBRIDGE_* environment overrides.
type LoadOptions struct {
	// ConfigFilePath forces loading a specific TOML file when set. Unlike
	// the default search, a missing file is then an error.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
}

// Provider loads the bridge configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type tomlProvider struct{}

// NewProvider returns the TOML-file-backed provider used by the CLI.
func NewProvider() Provider {
	return &tomlProvider{}
}

// Load reads and validates configuration from the requested source.
func (p *tomlProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
