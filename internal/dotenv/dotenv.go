// SPDX-License-Identifier: MPL-2.0

// Package dotenv reads KEY=value environment files. Borg is configured
// almost entirely through BORG_* environment variables (passphrases, lock
// behavior, consent flags), so bridge users commonly keep them in a dotenv
// file next to the repository.
package dotenv

import (
	"fmt"
	"os"
	"strings"
)

// DefaultFile is the file Load falls back to when no path is given.
const DefaultFile = ".env"

// Load reads the dotenv file at path (DefaultFile when empty) and returns
// its variables.
func Load(path string) (map[string]string, error) {
	if path == "" {
		path = DefaultFile
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dotenv: read %s: %w", path, err)
	}
	vars := map[string]string{}
	if err := Parse(vars, content, path); err != nil {
		return nil, err
	}
	return vars, nil
}

// Parse merges dotenv-format content into vars. Supported lines:
//
//   - # comments and blank lines (ignored)
//   - KEY=value, KEY= (empty)
//   - KEY="value" with \n \r \t \\ \" escapes
//   - KEY='value' literal
//   - an optional leading "export "
//
// The filename only feeds error messages.
func Parse(vars map[string]string, content []byte, filename string) error {
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("dotenv: %s:%d: missing '='", filename, i+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("dotenv: %s:%d: empty variable name", filename, i+1)
		}

		parsed, err := parseValue(value)
		if err != nil {
			return fmt.Errorf("dotenv: %s:%d: %w", filename, i+1, err)
		}
		vars[key] = parsed
	}
	return nil
}

func parseValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	switch value[0] {
	case '"':
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", fmt.Errorf("unterminated double quote")
		}
		return unescape(value[1 : len(value)-1]), nil
	case '\'':
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", fmt.Errorf("unterminated single quote")
		}
		return value[1 : len(value)-1], nil
	}

	// Unquoted: strip an inline comment.
	if idx := strings.Index(value, " #"); idx != -1 {
		value = strings.TrimSpace(value[:idx])
	}
	return value, nil
}

func unescape(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != '\\' || i+1 >= len(value) {
			b.WriteByte(value[i])
			continue
		}
		i++
		switch value[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '"', '$':
			b.WriteByte(value[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(value[i])
		}
	}
	return b.String()
}
