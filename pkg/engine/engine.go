// SPDX-License-Identifier: MPL-2.0

// Package engine defines the boundary to the wrapped archiving engine. The
// bridge hands a fully built argument vector to an Engine exactly as if it
// had been typed at a command line; everything the engine does with it
// (dedup, encryption, repository format) is the engine's own concern.
package engine

import (
	"context"
	"io"
)

type (
	// Engine is the wrapped engine's entry point.
	Engine interface {
		// Run executes one invocation with the given argument vector. Output
		// is expected on the process output targets and the named log
		// channels, which the caller has redirected for capture.
		Run(ctx context.Context, args []string) error
	}

	// Func adapts an ordinary function to the Engine interface, the usual
	// shape for in-process engines and test doubles.
	Func func(ctx context.Context, args []string) error

	// Detacher is implemented by engines that can launch an invocation as a
	// supervised detached child owning its own streams. The caller gets a
	// Handle back immediately and never observes the child's output.
	Detacher interface {
		Detach(ctx context.Context, args []string) (*Handle, error)
	}

	// StreamEngine is implemented by engines that can run with explicit
	// stdin/stdout/stderr instead of the process targets. Transport front
	// ends (serving a repository over SSH) use this to wire an invocation
	// directly to a connection.
	StreamEngine interface {
		RunStreams(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error
	}
)

// Run implements Engine.
func (f Func) Run(ctx context.Context, args []string) error {
	return f(ctx, args)
}
