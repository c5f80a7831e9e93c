// Package logger builds the process-wide zerolog logger. Components derive
// child loggers from it with a "component" field rather than importing this
// package again.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns the root logger. format "pretty" selects the console writer
// for local development; anything else emits JSON lines. An unparseable
// level falls back to info.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "pretty" {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}
