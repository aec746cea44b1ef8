// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride redirects ConfigDir for tests. os.UserHomeDir() does not
// reliably honor the HOME environment variable everywhere (macOS in CI being
// the usual offender), so tests point the bridge at a temp directory through
// this instead.
var configDirOverride string

// Reset clears the config directory override. Tests call it from cleanup so
// later tests see the real borgbridge directory again.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride pins the directory ConfigDir reports. Intended for
// tests; production callers use LoadOptions.ConfigDirPath instead.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
