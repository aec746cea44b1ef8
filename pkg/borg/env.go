// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"os"

	"borgbridge/internal/dotenv"
)

// environDefaults are the engine safety knobs applied only when unset: the
// bridge opts into modern exit codes and refuses surprise repository access
// rather than inheriting whatever the ambient shell happens to carry.
var environDefaults = map[string]string{
	"BORG_EXIT_CODES":                            "modern",
	"BORG_PASSPHRASE":                            "",
	"BORG_UNKNOWN_UNENCRYPTED_REPO_ACCESS_IS_OK": "no",
	"BORG_RELOCATED_REPO_ACCESS_IS_OK":           "no",
	"BORG_CHECK_I_KNOW_WHAT_I_AM_DOING":          "NO",
	"BORG_DELETE_I_KNOW_WHAT_I_AM_DOING":         "NO",
}

func applyEnvironDefaults() {
	for key, value := range environDefaults {
		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, value)
		}
	}
}

// SetEnviron loads variables into the process environment for the engine to
// pick up. A non-empty filename loads a dotenv file; otherwise vars is used
// when given, and the default .env file as a last resort. Keys loaded here
// are remembered so UnsetEnviron can remove them again.
func (c *Client) SetEnviron(filename string, vars map[string]string) error {
	switch {
	case filename != "":
		c.logger.Debug("loading environment file", "path", filename)
		loaded, err := dotenv.Load(filename)
		if err != nil {
			return err
		}
		vars = loaded
	case vars != nil:
		c.logger.Debug("loading environment map", "count", len(vars))
	default:
		c.logger.Debug("loading default environment file", "path", dotenv.DefaultFile)
		loaded, err := dotenv.Load("")
		if err != nil {
			return err
		}
		vars = loaded
	}

	c.prevEnv = c.prevEnv[:0]
	for key, value := range vars {
		if err := os.Setenv(key, value); err != nil {
			return err
		}
		c.prevEnv = append(c.prevEnv, key)
	}
	return nil
}

// UnsetEnviron removes the named variables from the environment. With no
// names, the keys from the previous SetEnviron call are removed.
func (c *Client) UnsetEnviron(names ...string) error {
	if len(names) == 0 {
		names = c.prevEnv
	}
	for _, name := range names {
		if _, ok := os.LookupEnv(name); !ok {
			continue
		}
		if err := os.Unsetenv(name); err != nil {
			return err
		}
	}
	return nil
}
