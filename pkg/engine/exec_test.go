// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"borgbridge/pkg/logbus"
)

type busRecorder struct {
	mu      sync.Mutex
	records []logbus.Record
}

func (r *busRecorder) Handle(rec logbus.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *busRecorder) all() []logbus.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]logbus.Record(nil), r.records...)
}

func TestDemux_RoutesLogRecords(t *testing.T) {
	rec := &busRecorder{}
	detach := logbus.Attach(logbus.List, slog.LevelDebug, rec)
	defer detach()

	input := strings.Join([]string{
		`{"type": "log_message", "name": "borg.output.list", "levelname": "INFO", "message": "A /home/u/notes.txt"}`,
		`{"type": "log_message", "name": "borg.output.list", "levelname": "WARNING", "message": "U /home/u/cache"}`,
	}, "\n")

	var passthrough bytes.Buffer
	demux(strings.NewReader(input), &passthrough)

	records := rec.all()
	if len(records) != 2 {
		t.Fatalf("expected 2 routed records, got %d", len(records))
	}
	if records[0].Message != "A /home/u/notes.txt" || records[0].Level != slog.LevelInfo {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Level != slog.LevelWarn {
		t.Errorf("second record level = %v", records[1].Level)
	}
	if passthrough.Len() != 0 {
		t.Errorf("nothing should pass through, got %q", passthrough.String())
	}
}

func TestDemux_PassesThroughNonRecords(t *testing.T) {
	input := strings.Join([]string{
		"plain stderr text",
		`{"name": "borg.somewhere.else", "message": "not a routed channel"}`,
		"{not json at all",
	}, "\n")

	var passthrough bytes.Buffer
	demux(strings.NewReader(input), &passthrough)

	lines := strings.Split(strings.TrimRight(passthrough.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 passthrough lines, got %d: %q", len(lines), passthrough.String())
	}
	if lines[0] != "plain stderr text" {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestDemux_EmptyMessageKeepsRawLine(t *testing.T) {
	rec := &busRecorder{}
	detach := logbus.Attach(logbus.Progress, slog.LevelDebug, rec)
	defer detach()

	line := `{"type": "progress_percent", "name": "borg.output.progress", "current": 10, "total": 100}`
	demux(strings.NewReader(line), &bytes.Buffer{})

	records := rec.all()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	// Progress records carry no message field, so the raw JSON line is kept
	// for the collector to decode.
	if records[0].Message != line {
		t.Errorf("message = %q, want raw line", records[0].Message)
	}
}

func TestLevelFromName(t *testing.T) {
	tests := []struct {
		name     string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"CRITICAL", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := levelFromName(tt.name); got != tt.expected {
			t.Errorf("levelFromName(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("engine failed")
	var gotArgs []string

	var eng Engine = Func(func(_ context.Context, args []string) error {
		gotArgs = args
		return wantErr
	})

	err := eng.Run(context.Background(), []string{"list", "/srv/repo"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() = %v, want %v", err, wantErr)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "list" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestBinaryDefault(t *testing.T) {
	t.Parallel()

	if got := NewExecEngine("").binary(); got != DefaultBinary {
		t.Errorf("binary() = %q, want %q", got, DefaultBinary)
	}
	if got := NewExecEngine("/opt/borg/bin/borg").binary(); got != "/opt/borg/bin/borg" {
		t.Errorf("binary() = %q", got)
	}
}
