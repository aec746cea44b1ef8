// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"borgbridge/pkg/capture"
	"borgbridge/pkg/engine"
	"borgbridge/pkg/flags"
)

type (
	// Config holds the construction-time settings shared across every
	// command call.
	Config struct {
		// Defaults are per-command stored option defaults, merged under
		// call-site values on every invocation.
		Defaults map[flags.Command]flags.Options
		// Options are process-wide common options applied to every command.
		Options flags.Options
		// LogLevel is the minimum severity forwarded from named channels
		// when a call does not override it: one of "critical", "error",
		// "warning", "info", "debug". Defaults to warning.
		LogLevel string
		// LogJSON asks the engine for JSON-formatted logging on every call.
		LogJSON bool
		// Environ is loaded into the process environment at construction
		// (passphrase commands and similar engine knobs).
		Environ map[string]string
		// Engine overrides the wrapped engine; defaults to an ExecEngine
		// invoking the borg binary on PATH.
		Engine engine.Engine
		// Logger overrides the bridge's own diagnostic logger.
		Logger *log.Logger
	}

	// Client drives the wrapped engine. Construct once, call per command;
	// each call opens and closes its own capture session. Calls must not
	// overlap: the capture session owns process-wide state and a concurrent
	// Open fails with capture.ErrSessionActive.
	Client struct {
		options  flags.Options
		registry *flags.Registry
		eng      engine.Engine
		level    slog.Level
		logJSON  bool
		logger   *log.Logger
		prevEnv  []string
	}
)

// New creates a Client. Engine safety defaults (BORG_EXIT_CODES and the
// access-confirmation variables) are applied to the environment only where
// not already set.
func New(cfg Config) (*Client, error) {
	options := flags.Options{}
	maps.Copy(options, cfg.Options)
	if cfg.LogJSON {
		options["log_json"] = true
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.NewExecEngine("")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "borgbridge"})
	}

	c := &Client{
		options:  options,
		registry: flags.NewRegistry(cfg.Defaults),
		eng:      eng,
		level:    level,
		logJSON:  cfg.LogJSON,
		logger:   logger,
	}

	applyEnvironDefaults()
	if cfg.Environ != nil {
		if err := c.SetEnviron("", cfg.Environ); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry exposes the command option registry, mainly for callers that
// want to serialize flags without invoking anything.
func (c *Client) Registry() *flags.Registry { return c.registry }

// common builds the shared option group from the process-wide options
// overlaid with the call-site values.
func (c *Client) common(values flags.Options) (*flags.Common, error) {
	common := new(flags.Common)
	if err := flags.Build(common, c.options, values); err != nil {
		return nil, err
	}
	return common, nil
}

// commonParsed builds the shared option group and its serialized tokens in
// one step, the shape every command method starts from.
func (c *Client) commonParsed(values flags.Options) (*flags.Common, []string, error) {
	common, err := c.common(values)
	if err != nil {
		return nil, nil, err
	}
	args, err := flags.Parse(common)
	if err != nil {
		return nil, nil, err
	}
	return common, args, nil
}

// baseOpts derives the capture options every command shares: severity
// filtering, JSON logging mode, and progress forwarding.
func baseOpts(level slog.Level, common *flags.Common) capture.Options {
	return capture.Options{
		Level:    level,
		LogJSON:  common.LogJSON,
		ProgShow: common.Progress,
		ProgJSON: common.LogJSON,
	}
}

// group builds and serializes one shared option group the same way.
func (c *Client) group(values flags.Options, schema any) ([]string, error) {
	if err := flags.Build(schema, c.options, values); err != nil {
		return nil, err
	}
	return flags.Parse(schema)
}

// optionals resolves the per-command schema through the registry.
func optionals[T any](c *Client, cmd flags.Command, values flags.Options) (*T, []string, error) {
	schema, err := flags.Get[T](c.registry, cmd, values)
	if err != nil {
		return nil, nil, err
	}
	args, err := flags.Parse(schema)
	if err != nil {
		return nil, nil, err
	}
	return schema, args, nil
}

// levelFor resolves the minimum forwarded severity for one call: explicit
// call-site level flags win over process-wide ones, which win over the
// configured default.
func (c *Client) levelFor(values flags.Options) slog.Level {
	for _, layer := range []flags.Options{values, c.options} {
		switch {
		case truthy(layer["critical"]), truthy(layer["error"]):
			return slog.LevelError
		case truthy(layer["warning"]):
			return slog.LevelWarn
		case truthy(layer["info"]), truthy(layer["verbose"]):
			return slog.LevelInfo
		case truthy(layer["debug"]):
			return slog.LevelDebug
		}
	}
	return c.level
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func parseLevel(name string) (slog.Level, error) {
	switch name {
	case "", "warning":
		return slog.LevelWarn, nil
	case "critical", "error":
		return slog.LevelError, nil
	case "info", "verbose":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("borg: unknown log level %q", name)
	}
}

// run executes one fully built argument vector inside a capture session.
// Session teardown runs on every exit path; an engine failure is logged at
// error severity and returned unchanged, never wrapped.
func (c *Client) run(ctx context.Context, args []string, opts capture.Options) (capture.Values, error) {
	id := uuid.NewString()
	c.logger.Debug("invoking engine", "id", id, "args", args)

	sess, err := capture.Open(opts)
	if err != nil {
		return capture.Values{}, err
	}
	defer sess.Close()

	if err := c.eng.Run(ctx, args); err != nil {
		c.logger.Error("engine invocation failed", "id", id, "err", err)
		return capture.Values{}, err
	}

	sess.Close()
	return sess.Values(), nil
}
