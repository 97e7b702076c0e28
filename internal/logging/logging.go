// Package logging sets up the daemon's slog logger with a runtime-adjustable
// level. The HTTP API and socket server change the level through SetLevel.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/jmylchreest/circadiand/internal/errors"
)

// Log level names accepted by config, flags, and the API.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log format names.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// levelVar backs every logger created by Setup so the level can be changed
// at runtime without rebuilding handlers.
var levelVar = new(slog.LevelVar)

// Setup creates the daemon logger writing to stderr.
// Unknown levels fall back to info, unknown formats to text.
func Setup(level, format string) *slog.Logger {
	return New(os.Stderr, level, format)
}

// New creates a logger writing to w. Split out from Setup for tests.
func New(w io.Writer, level, format string) *slog.Logger {
	levelVar.Set(parseLevel(level))
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetLevel changes the global log level at runtime.
func SetLevel(level string) error {
	switch level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		levelVar.Set(parseLevel(level))
		return nil
	default:
		return errors.InvalidInputf("unknown log level %q", level)
	}
}

// Level returns the current global log level name.
func Level() string {
	switch levelVar.Level() {
	case slog.LevelDebug:
		return LevelDebug
	case slog.LevelWarn:
		return LevelWarn
	case slog.LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
