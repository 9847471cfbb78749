// Package logging configures the application wide slog loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger *slog.Logger
var humanReadableLogger *slog.Logger

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Add trace and fatal level names.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// replaceLevelAttr rewrites the level attribute so custom levels render
// with their names instead of numeric offsets.
func replaceLevelAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		levelLabel, exists := levelNames[level]
		if !exists {
			levelLabel = level.String()
		}
		a.Value = slog.StringValue(levelLabel)
	}
	return a
}

func newHandlers(structuredOutput, humanReadableOutput io.Writer, level slog.Level) (structured, humanReadable *slog.Logger) {
	structuredHandler := slog.NewJSONHandler(structuredOutput, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttr,
	})
	humanReadableHandler := slog.NewTextHandler(humanReadableOutput, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttr,
	})
	return slog.New(structuredHandler), slog.New(humanReadableHandler)
}

// Init initializes the logging system with structured and human-readable loggers.
// It configures JSON output to stdout for structured logs and Text output to
// stderr for human-readable logs.
func Init() {
	structuredLogger, humanReadableLogger = newHandlers(os.Stdout, os.Stderr, slog.LevelInfo)
	slog.SetDefault(structuredLogger)
}

// SetLevel re-initializes both loggers with the given minimum level.
func SetLevel(level slog.Level) {
	structuredLogger, humanReadableLogger = newHandlers(os.Stdout, os.Stderr, level)
	slog.SetDefault(structuredLogger)
}

// SetOutput redirects logger output, e.g. to buffers in tests.
func SetOutput(structuredOutput, humanReadableOutput io.Writer) {
	structuredLogger, humanReadableLogger = newHandlers(structuredOutput, humanReadableOutput, slog.LevelInfo)
	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured (JSON) logger.
// Returns nil if Init() has not been called.
func Structured() *slog.Logger {
	return structuredLogger
}

// HumanReadable returns the globally configured human-readable (Text) logger.
// Returns nil if Init() has not been called.
func HumanReadable() *slog.Logger {
	return humanReadableLogger
}

// ForService creates a new logger instance with the 'service' attribute added.
// It uses the global structured logger as the base.
func ForService(serviceName string) *slog.Logger {
	if structuredLogger == nil {
		return nil
	}
	return structuredLogger.With("service", serviceName)
}

// --- Convenience functions using the default logger ---

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs a fatal message using the custom Fatal level and then exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// NewFileLogger creates a slog.Logger writing JSON logs to the given file path
// using lumberjack for rotation. All records carry a 'service' attribute.
// It returns the logger, a function to close the underlying writer, and an
// error if setup fails.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	// lumberjack does not create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttr,
	})

	logger := slog.New(fileHandler).With("service", serviceName)

	closeFunc := func() error {
		return logWriter.Close()
	}

	return logger, closeFunc, nil
}
