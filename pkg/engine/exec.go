// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"

	"github.com/google/uuid"

	"borgbridge/pkg/logbus"
)

// DefaultBinary is the engine binary invoked when no path is configured.
const DefaultBinary = "borg"

// routedChannels are the named channels an ExecEngine demultiplexes
// machine-readable stderr records onto.
var routedChannels = map[string]bool{
	logbus.List:       true,
	logbus.Stats:      true,
	logbus.Repository: true,
	logbus.Progress:   true,
}

type (
	// ExecEngine invokes a real engine binary via os/exec. Standard output
	// and error are resolved at Run time, so a capture session that has
	// redirected the process targets sees everything the child writes. When
	// the argument vector carries --log-json, stderr is demultiplexed: JSON
	// log records are routed onto the matching named channel and everything
	// else passes through to the secondary output.
	ExecEngine struct {
		// Path is the engine binary, DefaultBinary when empty.
		Path string
		// Env holds extra environment entries appended to the inherited
		// environment.
		Env []string
	}

	// Handle supervises a detached child invocation. The child owns its own
	// streams entirely; the parent only gets the identifiers and a Wait.
	Handle struct {
		// PID is the child's operating system process id.
		PID int
		// ID is the bridge-assigned invocation id.
		ID string

		cmd  *exec.Cmd
		once sync.Once
		err  error
	}

	// logRecord is the wire shape of one machine-readable engine log line.
	logRecord struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		LevelName string `json:"levelname"`
		Message   string `json:"message"`
	}
)

// NewExecEngine creates an exec-backed engine for the given binary path.
func NewExecEngine(path string) *ExecEngine {
	return &ExecEngine{Path: path}
}

func (e *ExecEngine) binary() string {
	if e.Path != "" {
		return e.Path
	}
	return DefaultBinary
}

// Run implements Engine.
func (e *ExecEngine) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Env = append(os.Environ(), e.Env...)

	if !slices.Contains(args, "--log-json") {
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	demux(stderr, os.Stderr)
	return cmd.Wait()
}

// RunStreams implements StreamEngine.
func (e *ExecEngine) RunStreams(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), e.Env...)
	return cmd.Run()
}

// Detach implements Detacher. The child is reparented into its own session
// and keeps running after this call returns, beyond the lifetime of ctx.
// Its output is discarded, not piped back.
func (e *ExecEngine) Detach(_ context.Context, args []string) (*Handle, error) {
	cmd := exec.Command(e.binary(), args...)
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Handle{PID: cmd.Process.Pid, ID: uuid.NewString(), cmd: cmd}, nil
}

// Wait blocks until the detached child exits and returns its error, if any.
// Safe to call more than once.
func (h *Handle) Wait() error {
	h.once.Do(func() { h.err = h.cmd.Wait() })
	return h.err
}

// Kill terminates the detached child.
func (h *Handle) Kill() error {
	return h.cmd.Process.Kill()
}

// demux scans machine-readable stderr lines, routing log records onto their
// named channel and passing everything else through.
func demux(r io.Reader, passthrough io.Writer) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()

		var rec logRecord
		if err := json.Unmarshal(line, &rec); err == nil && routedChannels[rec.Name] {
			msg := rec.Message
			if msg == "" {
				msg = string(line)
			}
			logbus.Emit(rec.Name, levelFromName(rec.LevelName), msg)
			continue
		}
		passthrough.Write(append(line, '\n'))
	}
}

func levelFromName(name string) slog.Level {
	switch name {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
