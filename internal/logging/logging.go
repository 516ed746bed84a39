// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "warrant-sniper", "logs", "sniper.log"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	return logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
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

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// SetInfoLevel sets the global log level to info.
func SetInfoLevel() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
	// CommandIDKey is the context key for the search command ID.
	CommandIDKey ContextKey = "command_id"
	// StockCodeKey is the context key for the underlying stock code.
	StockCodeKey ContextKey = "stock_code"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithStockCode adds a stock code to the logger context.
func WithStockCode(logger zerolog.Logger, stockCode string) zerolog.Logger {
	return logger.With().Str("stock_code", stockCode).Logger()
}

// WithCommandID adds a command ID to the logger context.
func WithCommandID(logger zerolog.Logger, commandID string) zerolog.Logger {
	return logger.With().Str("command_id", commandID).Logger()
}

// LogSearchSubmitted logs a search command creation.
func LogSearchSubmitted(logger zerolog.Logger, commandID, stockCode string) {
	logger.Info().
		Str("event", "search_submitted").
		Str("command_id", commandID).
		Str("stock_code", stockCode).
		Msg("Search command submitted")
}

// LogSearchCompleted logs a completed search with its match count.
func LogSearchCompleted(logger zerolog.Logger, stockCode string, matches int, updatedAt time.Time) {
	logger.Info().
		Str("event", "search_completed").
		Str("stock_code", stockCode).
		Int("matches", matches).
		Time("updated_at", updatedAt).
		Msg("Search completed")
}

// LogStaleDrop logs a dropped stale result delivery.
func LogStaleDrop(logger zerolog.Logger, stockCode string, generation uint64) {
	logger.Debug().
		Str("event", "stale_drop").
		Str("stock_code", stockCode).
		Uint64("generation", generation).
		Msg("Dropped stale result delivery")
}

// LogLockout logs a lockout activation.
func LogLockout(logger zerolog.Logger, attempts int, until time.Time) {
	logger.Warn().
		Str("event", "lockout").
		Int("failed_attempts", attempts).
		Time("until", until).
		Msg("Authentication locked out")
}

// LogTransportCall logs a transport round-trip.
func LogTransportCall(logger zerolog.Logger, operation, stockCode string, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "transport_call").
		Str("operation", operation).
		Str("stock_code", stockCode).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Transport call failed")
	} else {
		event.Msg("Transport call completed")
	}
}
