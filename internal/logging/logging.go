// Package logging constructs the engine's zerolog logger. The teacher builds
// a single slog.Logger in cmd/server/main.go and threads it through every
// constructor rather than reaching for a package-level global; this package
// keeps that shape, swapping the handler for zerolog per SPEC_FULL.md §2.1.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	// Level is one of zerolog's level names ("debug", "info", "warn", "error").
	Level string
	// Pretty enables the human-readable console writer, mirroring the
	// teacher's plain slog.TextHandler for local development.
	Pretty bool
	Output io.Writer
}

// New builds the root logger. Callers derive per-subsystem loggers with
// Logger.With().Str("component", "gateway").Logger(), matching the teacher's
// logger.With("component", "gateway") idiom one-for-one.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given subsystem name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
