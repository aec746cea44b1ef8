// SPDX-License-Identifier: MPL-2.0

package capture

import (
	"log/slog"
	"strings"
	"sync"

	"borgbridge/pkg/logbus"
)

// ChannelCapture collects the records emitted on one named log channel for
// the duration of a capture session. In text mode records are stored as
// trimmed message lines; in JSON mode the raw record payloads are kept in
// arrival order so the result synthesizer can parse them. Once closed, the
// collector is detached and sees no further records even if the channel
// keeps emitting.
type ChannelCapture struct {
	mu      sync.Mutex
	json    bool
	records []string
	idx     int
	closed  bool
	detach  func()
}

// NewChannelCapture attaches a collector to the named channel with the given
// minimum severity.
func NewChannelCapture(channel string, min slog.Level, json bool) *ChannelCapture {
	c := &ChannelCapture{json: json}
	c.detach = logbus.Attach(channel, min, c)
	return c
}

// Handle implements logbus.Handler. Not meant to be called directly.
func (c *ChannelCapture) Handle(rec logbus.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	msg := rec.Message
	if !c.json {
		msg = strings.TrimRight(msg, " \t\r\n")
	}
	if msg != "" {
		c.records = append(c.records, msg)
	}
}

// Next returns the next not-yet-read record, or false when nothing new has
// arrived.
func (c *ChannelCapture) Next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idx >= len(c.records) {
		return "", false
	}
	rec := c.records[c.idx]
	c.idx++
	return rec, true
}

// All returns the full record history without moving the read cursor.
func (c *ChannelCapture) All() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.records))
	copy(out, c.records)
	return out
}

// Rest returns the records not yet consumed by Next, without moving the
// cursor.
func (c *ChannelCapture) Rest() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idx >= len(c.records) {
		return nil
	}
	out := make([]string, len(c.records)-c.idx)
	copy(out, c.records[c.idx:])
	return out
}

// Seek repositions the read cursor used by Next. New records always append
// at the end regardless of the cursor.
func (c *ChannelCapture) Seek(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = idx
}

// Value returns the captured data in its display shape: newline-joined text
// in text mode, the ordered raw record list in JSON mode.
func (c *ChannelCapture) Value() any {
	if c.json {
		return c.All()
	}
	return strings.Join(c.All(), "\n")
}

// Close detaches the collector from its channel. Idempotent.
func (c *ChannelCapture) Close() {
	c.mu.Lock()
	closed := c.closed
	c.closed = true
	c.mu.Unlock()

	if !closed && c.detach != nil {
		c.detach()
	}
}
