// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"borgbridge/internal/config"
	"borgbridge/pkg/borg"
	"borgbridge/pkg/engine"
	"borgbridge/pkg/flags"
)

// buildClient assembles a client from the config file and the global flags.
// Flags win over file values.
func buildClient(ctx context.Context) (*borg.Client, *config.Config, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	binary := cfg.Engine.Binary
	if engineBinary != "" {
		binary = engineBinary
	}

	level := cfg.LogLevel
	if verbose {
		level = "info"
	}

	client, err := borg.New(borg.Config{
		Defaults: cfg.CommandDefaults(),
		Options:  cfg.CommonOptions(),
		LogLevel: level,
		LogJSON:  logJSON || cfg.LogJSON,
		Engine:   engine.NewExecEngine(binary),
	})
	if err != nil {
		return nil, nil, err
	}

	if path := envFilePath(cfg); path != "" {
		if err := client.SetEnviron(path, nil); err != nil {
			return nil, nil, err
		}
	}

	return client, cfg, nil
}

func envFilePath(cfg *config.Config) string {
	if envFile != "" {
		return envFile
	}
	return cfg.EnvFile
}

// callOptions converts the repeated -o key=value flags into a typed option
// layer. Values parse as bool, then int, then string; repeating a key turns
// it into a list.
func callOptions() (flags.Options, error) {
	if len(optionArgs) == 0 {
		return nil, nil
	}

	opts := flags.Options{}
	for _, arg := range optionArgs {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed option %q, want key=value", arg)
		}

		value := coerceOption(raw)
		if prev, exists := opts[key]; exists {
			opts[key] = appendOption(prev, value)
		} else {
			opts[key] = value
		}
	}
	return opts, nil
}

func coerceOption(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return raw
}

func appendOption(prev, value any) []string {
	var list []string
	if existing, ok := prev.([]string); ok {
		list = existing
	} else {
		list = []string{fmt.Sprint(prev)}
	}
	return append(list, fmt.Sprint(value))
}

// printOutput renders a command result: nothing for empty results, raw text
// for plain strings, indented JSON for everything else.
func printOutput(out borg.Output) error {
	switch v := out.(type) {
	case nil:
		return nil
	case string:
		fmt.Println(strings.TrimRight(v, "\n"))
		return nil
	case []byte:
		_, err := os.Stdout.Write(v)
		return err
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
}

// runOutput is the common RunE tail: run the call, print the result. Engine
// exit codes pass through to the shell (borg's modern exit codes distinguish
// warnings from errors).
func runOutput(ctx context.Context, call func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error)) error {
	client, _, err := buildClient(ctx)
	if err != nil {
		return err
	}
	options, err := callOptions()
	if err != nil {
		return err
	}
	out, err := call(ctx, client, options)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			fmt.Fprintf(os.Stderr, "%s: engine exited with code %d\n", severityPrefix(code), code)
			return &ExitError{Code: code, Err: err}
		}
		return err
	}
	return printOutput(out)
}

// severityPrefix renders a styled stderr prefix for a non-zero engine exit.
// Under modern exit codes, rc 1 and the 100..127 range are warnings; 2 and
// the 3..99 range are errors.
func severityPrefix(code int) string {
	if code == 1 || (code >= 100 && code <= 127) {
		return WarningStyle.Render("warning")
	}
	return ErrorStyle.Render("error")
}
