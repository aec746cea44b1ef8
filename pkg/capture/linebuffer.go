// SPDX-License-Identifier: MPL-2.0

package capture

import (
	"strings"
	"sync"
)

// LineBuffer is an incremental line-segmenting text sink. Writes are split
// into complete, newline-preserving lines as they arrive; an incomplete
// trailing fragment is held back and prefixed to the next write rather than
// emitted early. The buffer is safe for one writer and concurrent pollers,
// which is what lets a caller read streaming progress output while the
// captured invocation is still running.
type LineBuffer struct {
	mu      sync.Mutex
	lines   []string
	partial string
	idx     int
}

// NewLineBuffer creates an empty buffer.
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{}
}

// Write implements io.Writer. Carriage returns are normalized to newlines
// before segmenting, so progress output that redraws lines with \r still
// arrives as discrete lines.
func (b *LineBuffer) Write(p []byte) (int, error) {
	b.WriteString(string(p))
	return len(p), nil
}

// WriteString appends s, completing any pending partial line first.
func (b *LineBuffer) WriteString(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	text := b.partial + s
	b.partial = ""

	// A trailing \r may be the first half of a \r\n pair split across
	// writes; hold it back until the next chunk decides.
	hold := ""
	if strings.HasSuffix(text, "\r") {
		hold = "\r"
		text = strings.TrimSuffix(text, "\r")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			b.partial = text + hold
			return
		}
		// Trailing whitespace is trimmed but a blank line survives as a
		// bare newline, keeping verbatim output like borg info intact.
		line := strings.TrimRight(text[:nl], " \t")
		b.lines = append(b.lines, line+"\n")
		text = text[nl+1:]
	}
}

// Next returns the next not-yet-read line. The second return value is false
// when there is nothing new yet.
func (b *LineBuffer) Next() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.idx >= len(b.lines) {
		return "", false
	}
	line := b.lines[b.idx]
	b.idx++
	return line, true
}

// Lines returns every completed line written so far without disturbing the
// read cursor used by Next.
func (b *LineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// String joins all completed lines back into one text block.
func (b *LineBuffer) String() string {
	return strings.Join(b.Lines(), "")
}

// Flush promotes a pending partial line to a completed one. The owning
// session calls this on close so output without a trailing newline is not
// lost.
func (b *LineBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if line := strings.TrimRight(b.partial, " \t\r"); line != "" {
		b.lines = append(b.lines, line)
	}
	b.partial = ""
}
