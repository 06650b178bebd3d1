// Package logger provides structured logging for the eventscout pipeline.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes
// one JSON object per line through zerolog, or a human-readable console format
// for interactive runs. All entries carry a timestamp and can include arbitrary
// structured fields.
//
// Example usage:
//
//	logger.Info("Fetched event page", logger.Fields{
//	    "id":  12,
//	    "url": "https://lu.ma/abc123",
//	})
//
//	logger.Error("Summarization request failed", logger.Fields{
//	    "id": 12,
//	}, err)
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Format selects the output encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Logger provides structured logging
type Logger struct {
	minLevel Level
	zl       zerolog.Logger
}

// Fields represents structured log fields
type Fields map[string]interface{}

var defaultLogger *Logger

func init() {
	defaultLogger = New(LevelInfo, os.Stderr)
}

// New creates a JSON logger with the specified minimum log level and output destination.
// Messages below the minimum level will be discarded.
func New(level Level, output io.Writer) *Logger {
	return newLogger(level, output)
}

// NewWithFormat creates a logger writing in the given format
func NewWithFormat(level Level, format Format, output io.Writer) *Logger {
	if format == FormatConsole {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}
	return newLogger(level, output)
}

func newLogger(level Level, output io.Writer) *Logger {
	zl := zerolog.New(output).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{
		minLevel: level,
		zl:       zl,
	}
}

// ParseLevel converts a case-insensitive level name into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level: %s", s)
	}
}

// SetDefault sets the default package-level logger used by the convenience functions
// (Debug, Info, Warn, Error). This allows centralizing logger configuration.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{
		minLevel: l.minLevel,
		zl:       l.zl.With().Fields(map[string]interface{}(fields)).Logger(),
	}
}

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	ev := l.zl.WithLevel(zerologLevel(level))
	if ev == nil {
		return
	}

	if len(fields) > 0 {
		ev = ev.Fields(map[string]interface{}(fields))
	}
	if err != nil {
		ev = ev.Err(err)
	}

	ev.Msg(message)
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields.
// Warnings mark failures the pipeline recovers from, such as a skipped event.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}
