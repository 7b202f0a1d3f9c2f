// Package logger provides leveled structured logging.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.Nop()

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the default logger with the specified level and format.
// Format "text" writes human-readable console lines; anything else writes JSON.
func Init(level string, format string) {
	InitWithWriter(os.Stderr, level, format)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(w io.Writer, level string, format string) {
	if strings.ToLower(format) == "text" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.StampMicro}
	}
	base = zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

func Debug(format string, args ...interface{}) {
	base.Debug().Msgf(format, args...)
}

func Info(format string, args ...interface{}) {
	base.Info().Msgf(format, args...)
}

func Warn(format string, args ...interface{}) {
	base.Warn().Msgf(format, args...)
}

func Error(format string, args ...interface{}) {
	base.Error().Msgf(format, args...)
}

func Fatal(format string, args ...interface{}) {
	base.WithLevel(zerolog.FatalLevel).Msgf(format, args...)
	os.Exit(1)
}
