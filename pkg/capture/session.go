// SPDX-License-Identifier: MPL-2.0

// Package capture redirects the process-wide output streams and Borg's named
// log channels for the duration of one engine invocation, then hands the
// buffered output back as a structured bundle.
package capture

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"borgbridge/pkg/logbus"
)

// ErrSessionActive is returned by Open while another session owns the
// process output streams. The streams and the channel registry are
// process-wide, so overlapping sessions would corrupt each other's captures.
var ErrSessionActive = errors.New("capture: a session is already active")

var (
	activeMu sync.Mutex
	active   bool
)

type (
	// Options describes, per invocation, what one session should capture.
	// It is a value object: construct it fully, then hand it to Open.
	Options struct {
		// RawBytes switches the primary output sink from line-oriented text
		// to a raw byte buffer (extract --stdout, export-tar to stdout).
		RawBytes bool
		// Level is the minimum severity forwarded from named channels.
		Level slog.Level
		// LogJSON indicates the engine was asked for JSON-formatted logging.
		LogJSON bool

		ListShow  bool
		ListJSON  bool
		StatsShow bool
		StatsJSON bool
		RepoShow  bool
		RepoJSON  bool
		ProgShow  bool
		ProgJSON  bool
	}

	// Values is the raw bundle read out of one session. Channel fields hold
	// either joined text or an ordered record list depending on the channel's
	// JSON mode, and are nil when the channel was not attached.
	Values struct {
		Stdout    string
		RawStdout []byte
		Stderr    string
		List      any
		Stats     any
		Repo      any
	}

	// Session owns the redirected standard output/error targets and zero or
	// more channel captures for exactly one invocation. Sessions are
	// single-use: Open immediately before the call, Close in the same scope
	// on every exit path.
	Session struct {
		opts Options

		stdout *LineBuffer
		raw    *byteSink
		stderr *LineBuffer

		list       *ChannelCapture
		stats      *ChannelCapture
		repo       *ChannelCapture
		progDetach func()

		origStdout *os.File
		origStderr *os.File
		outW       *os.File
		errW       *os.File

		wg        sync.WaitGroup
		closeOnce sync.Once
	}

	// byteSink is a concurrency-safe raw byte buffer for binary-mode stdout.
	byteSink struct {
		mu  sync.Mutex
		buf bytes.Buffer
	}
)

func (s *byteSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *byteSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}

// Open redirects os.Stdout and os.Stderr into session-owned buffers and
// attaches a channel capture for each named channel requested in opts. At
// most one session may be open at any instant; a second Open fails with
// ErrSessionActive rather than silently interleaving.
func Open(opts Options) (*Session, error) {
	activeMu.Lock()
	if active {
		activeMu.Unlock()
		return nil, ErrSessionActive
	}
	active = true
	activeMu.Unlock()

	s := &Session{opts: opts}

	var stdoutSink io.Writer
	if opts.RawBytes {
		s.raw = &byteSink{}
		stdoutSink = s.raw
	} else {
		s.stdout = NewLineBuffer()
		stdoutSink = s.stdout
	}
	s.stderr = NewLineBuffer()

	outR, outW, err := os.Pipe()
	if err != nil {
		s.release()
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		s.release()
		return nil, err
	}

	s.origStdout, s.origStderr = os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW
	s.outW, s.errW = outW, errW

	s.wg.Add(2)
	go s.drain(outR, stdoutSink)
	go s.drain(errR, s.stderr)

	if opts.ListShow {
		s.list = NewChannelCapture(logbus.List, opts.Level, opts.ListJSON)
	}
	if opts.StatsShow {
		s.stats = NewChannelCapture(logbus.Stats, opts.Level, opts.StatsJSON)
	}
	if opts.RepoShow {
		s.repo = NewChannelCapture(logbus.Repository, opts.Level, opts.RepoJSON)
	}
	if opts.ProgShow {
		// Progress records emitted on the bus land in the secondary buffer,
		// next to plain-text progress, so callers poll one place for both.
		s.progDetach = logbus.Attach(logbus.Progress, opts.Level, lineRelay{s.stderr})
	}

	return s, nil
}

// lineRelay forwards bus records into a line buffer.
type lineRelay struct {
	buf *LineBuffer
}

func (l lineRelay) Handle(rec logbus.Record) {
	_, _ = l.buf.Write([]byte(rec.Message + "\n"))
}

func (s *Session) drain(r *os.File, sink io.Writer) {
	defer s.wg.Done()
	defer r.Close()
	_, _ = io.Copy(sink, r)
}

func (s *Session) release() {
	activeMu.Lock()
	active = false
	activeMu.Unlock()
}

// Values snapshots all active buffers into one bundle. Read cursors used for
// positional polling are left untouched, and the session may still be open.
func (s *Session) Values() Values {
	v := Values{Stderr: s.stderr.String()}

	if s.opts.RawBytes {
		v.RawStdout = s.raw.Bytes()
	} else {
		v.Stdout = s.stdout.String()
	}
	if s.list != nil {
		v.List = s.list.Value()
	}
	if s.stats != nil {
		v.Stats = s.stats.Value()
	}
	if s.repo != nil {
		v.Repo = s.repo.Value()
	}
	return v
}

// Close detaches every channel capture, drains and closes the owned pipes,
// and unconditionally restores the original output targets. It is idempotent
// and must run on every exit path, including when the wrapped invocation
// fails.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		os.Stdout = s.origStdout
		os.Stderr = s.origStderr

		s.outW.Close()
		s.errW.Close()
		s.wg.Wait()

		if s.stdout != nil {
			s.stdout.Flush()
		}
		s.stderr.Flush()

		for _, c := range []*ChannelCapture{s.list, s.stats, s.repo} {
			if c != nil {
				c.Close()
			}
		}
		if s.progDetach != nil {
			s.progDetach()
		}

		s.release()
	})
	return nil
}

// Stdout returns the line buffer behind the redirected primary output, or
// nil in raw-bytes mode.
func (s *Session) Stdout() *LineBuffer { return s.stdout }

// Stderr returns the line buffer behind the redirected secondary output.
func (s *Session) Stderr() *LineBuffer { return s.stderr }

// Progress returns the buffer progress information streams into. Borg
// reports progress on the secondary output target.
func (s *Session) Progress() *LineBuffer { return s.stderr }

// List returns the list-channel capture, nil when not attached.
func (s *Session) List() *ChannelCapture { return s.list }

// Stats returns the stats-channel capture, nil when not attached.
func (s *Session) Stats() *ChannelCapture { return s.stats }

// Repository returns the repository-channel capture, nil when not attached.
func (s *Session) Repository() *ChannelCapture { return s.repo }
