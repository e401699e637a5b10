// Package log provides the structured-logging surface used throughout
// the server. It is a small interface — Debug/Info/Warn/Error with
// key-value pairs — backed by zerolog, in the shape of the socket
// library's own Logger abstraction but bound to a concrete
// implementation instead of accepting *slog.Logger.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured-logging surface every package depends on.
// internal/chatroom only needs Info/Debug/Warn; internal/transport and
// cmd/wirechat-server also use Error.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// zerologLogger adapts zerolog.Logger to the Logger interface, folding
// the variadic key-value pairs into structured fields.
type zerologLogger struct {
	logger zerolog.Logger
}

// New returns a console-formatted zerolog-backed Logger writing to w.
// Pass os.Stdout for human-readable output during development; any
// io.Writer works, so tests can assert against a bytes.Buffer.
func New(w io.Writer) Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	zl := zerolog.New(console).With().Timestamp().Logger()
	return &zerologLogger{logger: zl}
}

// NewDefault is the production entry point: console writer over stderr.
func NewDefault() Logger {
	return New(os.Stderr)
}

func (l *zerologLogger) Debug(msg string, kv ...any) { l.event(l.logger.Debug(), kv).Msg(msg) }
func (l *zerologLogger) Info(msg string, kv ...any)  { l.event(l.logger.Info(), kv).Msg(msg) }
func (l *zerologLogger) Warn(msg string, kv ...any)  { l.event(l.logger.Warn(), kv).Msg(msg) }
func (l *zerologLogger) Error(msg string, kv ...any) { l.event(l.logger.Error(), kv).Msg(msg) }

// event folds a flat key, value, key, value... slice into a
// zerolog.Event using zerolog's own Fields helper.
func (l *zerologLogger) event(evt *zerolog.Event, kv []any) *zerolog.Event {
	if len(kv) == 0 {
		return evt
	}
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return evt.Fields(fields)
}
