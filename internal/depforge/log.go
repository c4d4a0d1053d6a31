package depforge

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// logger carries diagnostics. Progress lines meant for the operator are printed
// with the color helpers instead.
var logger = zerolog.Nop()

// newLogger builds the diagnostics logger for one run. format is "console"
// (default) or "json".
func newLogger(w io.Writer, format string, debug bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
		}
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("run", uuid.NewString()).
		Logger()
}

// setLogger installs l as the package logger and returns a function that
// restores the previous one.
func setLogger(l zerolog.Logger) func() {
	prev := logger
	logger = l
	return func() { logger = prev }
}
