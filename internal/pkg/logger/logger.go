// Package logger implements ports.Logger on top of zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Pretty switches from JSON lines to human-readable console output.
	Pretty bool
	// Output defaults to os.Stderr so log lines never mix with command output.
	Output io.Writer
}

// Logger routes the application's field-map logging calls to zerolog.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// ParseLevel parses a level name case-insensitively. Unknown names map to warn,
// which keeps a CLI quiet unless asked otherwise.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *Logger) Error(msg string, err error, fields map[string]interface{}) {
	l.zl.Error().Err(err).Fields(fields).Msg(msg)
}
