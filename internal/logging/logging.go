// Package logging builds the zerolog loggers used across uidelegate.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel parses a level name. The empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "off", "disabled", "none":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q (valid: trace, debug, info, warn, error, off)", s)
	}
}

// ValidFormat reports whether format names an output format.
func ValidFormat(format string) bool {
	switch format {
	case "", FormatConsole, FormatJSON:
		return true
	}
	return false
}

// Config contains logger configuration.
type Config struct {
	// Level is the minimum level written, as accepted by ParseLevel.
	Level string

	// Format is FormatConsole or FormatJSON. Empty means console.
	Format string

	// Output receives log lines. Nil means stderr.
	Output io.Writer

	// Component, when set, is added to every entry.
	Component string
}

// DefaultConfig returns console logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
	}
}

// New creates a logger from cfg.
func New(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if !ValidFormat(cfg.Format) {
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (valid: console, json)", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: !isTerminal(out)}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.Component != "" {
		logger = WithComponent(logger, cfg.Component)
	}
	return logger, nil
}

// WithComponent returns a child logger tagged with component.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
