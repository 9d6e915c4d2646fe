// Package logging builds the zerolog loggers used across the daemon.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Format selects the log output encoding.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatAuto    = "auto"
)

var levels = map[string]zerolog.Level{
	"TRACE": zerolog.TraceLevel,
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
}

// ParseLevel maps a config level name to a zerolog level.
// Unknown names fall back to INFO and report ok=false.
func ParseLevel(name string) (zerolog.Level, bool) {
	l, ok := levels[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return zerolog.InfoLevel, false
	}
	return l, true
}

// New returns the root logger writing to w.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, ok := ParseLevel(level)

	if format == FormatConsole || (format == FormatAuto && isTerminal(w)) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if !ok && level != "" {
		logger.Warn().Str("level", level).Msg("invalid log level, defaulting to INFO")
	}
	return logger
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
