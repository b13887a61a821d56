// Package obslog wraps zerolog with the teacher's event-oriented call
// shape (a short human-readable line plus structured fields) so call
// sites read like the teacher's emoji-prefixed log.Printf lines while
// emitting structured JSON or console output depending on configuration.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the output encoding.
type Format int

const (
	// Console renders human-readable colored lines, for interactive use.
	Console Format = iota
	// JSON renders one JSON object per line, for piping to log collectors.
	JSON
)

var base zerolog.Logger

func init() {
	Configure(Console, os.Stderr)
}

// Configure installs the process-wide base logger. Call once at startup
// (cmd/turnline reads --log-format) before any Turn/Event calls.
func Configure(format Format, w io.Writer) {
	var out io.Writer = w
	if format == Console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	base = zerolog.New(out).With().Timestamp().Logger()
}

// Event is a structured log line under construction. Each field setter
// (Tool, Mode, Attempt, Field, Err) returns a new Event; terminal
// Info/Warn/Error/Debug calls emit it.
type Event struct {
	ctx zerolog.Context
}

// Turn starts an event scoped to a turn_id.
func Turn(id string) Event {
	return Event{ctx: base.With().Str("turn_id", id)}
}

// Tool attaches a tool name field.
func (e Event) Tool(name string) Event {
	return Event{ctx: e.ctx.Str("tool", name)}
}

// Mode attaches a mode field.
func (e Event) Mode(mode string) Event {
	return Event{ctx: e.ctx.Str("mode", mode)}
}

// Attempt attaches a retry-attempt field.
func (e Event) Attempt(n int) Event {
	return Event{ctx: e.ctx.Int("attempt", n)}
}

// Field attaches an arbitrary string field, for call sites that need one
// the named helpers above don't cover.
func (e Event) Field(key, value string) Event {
	return Event{ctx: e.ctx.Str(key, value)}
}

// Err attaches an error field.
func (e Event) Err(err error) Event {
	return Event{ctx: e.ctx.Err(err)}
}

// Info emits msg at info level with the accumulated fields.
func (e Event) Info(msg string) { l := e.ctx.Logger(); l.Info().Msg(msg) }

// Warn emits msg at warn level with the accumulated fields.
func (e Event) Warn(msg string) { l := e.ctx.Logger(); l.Warn().Msg(msg) }

// Error emits msg at error level with the accumulated fields.
func (e Event) Error(msg string) { l := e.ctx.Logger(); l.Error().Msg(msg) }

// Debug emits msg at debug level with the accumulated fields.
func (e Event) Debug(msg string) { l := e.ctx.Logger(); l.Debug().Msg(msg) }

// Info logs a bare info-level line with no turn/tool scope, for
// startup/shutdown messages outside any turn (the equivalent of the
// teacher's logInitialConfiguration banner).
func Info(msg string) { base.Info().Msg(msg) }

// Warn logs a bare warn-level line.
func Warn(msg string) { base.Warn().Msg(msg) }

// Error logs a bare error-level line.
func Error(msg string, err error) { base.Error().Err(err).Msg(msg) }
