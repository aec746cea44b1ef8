// SPDX-License-Identifier: MPL-2.0

// Package logbus is the process-wide registry of named log channels the
// wrapped engine emits records into. Borg routes its machine-readable
// output (file lists, archive stats, repository messages, progress) through
// named logger channels rather than plain streams; engines running in this
// process do the same through this bus, and capture sessions attach
// collectors to the channels they were asked to observe.
package logbus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Channel names used by Borg for machine-readable output.
const (
	List       = "borg.output.list"
	Stats      = "borg.output.stats"
	Repository = "borg.repository"
	Progress   = "borg.output.progress"
)

type (
	// Record is one emitted log entry on a named channel.
	Record struct {
		Time    time.Time
		Level   slog.Level
		Channel string
		Message string
	}

	// Handler receives records emitted on a channel it is attached to.
	Handler interface {
		Handle(Record)
	}

	subscription struct {
		min     slog.Level
		handler Handler
	}
)

var (
	mu   sync.RWMutex
	subs = map[string][]*subscription{}
)

// Attach registers a handler on one named channel with a minimum severity
// filter. The returned detach func removes the handler; once detached, the
// handler sees no further records even if the channel keeps emitting.
func Attach(channel string, min slog.Level, h Handler) (detach func()) {
	sub := &subscription{min: min, handler: h}

	mu.Lock()
	subs[channel] = append(subs[channel], sub)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		list := subs[channel]
		for i, s := range list {
			if s == sub {
				subs[channel] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(subs[channel]) == 0 {
			delete(subs, channel)
		}
	}
}

// Emit delivers one record to every handler attached to the channel whose
// severity filter admits it. Emitting on a channel with no handlers is a
// no-op.
func Emit(channel string, level slog.Level, msg string) {
	rec := Record{Time: time.Now(), Level: level, Channel: channel, Message: msg}

	mu.RLock()
	list := subs[channel]
	handlers := make([]*subscription, len(list))
	copy(handlers, list)
	mu.RUnlock()

	for _, s := range handlers {
		if rec.Level >= s.min {
			s.handler.Handle(rec)
		}
	}
}

// Logger exposes a named channel as a *slog.Logger so in-process engines can
// log through the standard structured interface.
func Logger(channel string) *slog.Logger {
	return slog.New(&busHandler{channel: channel})
}

// busHandler adapts slog records onto the bus. Severity filtering happens
// per attached handler, so Enabled admits everything.
type busHandler struct {
	channel string
}

func (h *busHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *busHandler) Handle(_ context.Context, r slog.Record) error {
	Emit(h.channel, r.Level, r.Message)
	return nil
}

func (h *busHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *busHandler) WithGroup(string) slog.Handler { return h }
