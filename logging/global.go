// Package logging sets up structured logging for the service: a console handler,
// a JSON handler writing to weekly rotating files, and an HTTP access log middleware.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/medicine-recommender/config"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	initMu                sync.Mutex
)

// Options controls the destinations and verbosity of the logger
type Options struct {
	Dir            string // empty means console only
	RetentionWeeks int
	MaxFileSize    int64
	ConsoleLevel   slog.Level
	FileLevel      slog.Level
}

// InitLogger initializes the global logger with default retention and levels
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{
		Dir:            logDir,
		RetentionWeeks: defaultRetentionWeeks,
		MaxFileSize:    defaultMaxFileSize,
		ConsoleLevel:   slog.LevelInfo,
		FileLevel:      slog.LevelInfo,
	})
}

// InitLoggerFromConfig initializes the global logger from the service configuration
func InitLoggerFromConfig(cfg *config.Config) {
	InitLoggerWithOptions(Options{
		Dir:            cfg.LogDir,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
		ConsoleLevel:   GetConsoleLogLevel(cfg.Env, cfg.LogLevel, os.Getenv("VERBOSE") != ""),
		FileLevel:      parseLogLevel(cfg.LogLevel),
	})
}

// InitLoggerWithOptions replaces the global logger, closing the previous log file if any
func InitLoggerWithOptions(opts Options) {
	initMu.Lock()
	defer initMu.Unlock()

	if DefaultLoggingService != nil && DefaultLoggingService.file != nil {
		_ = DefaultLoggingService.file.Close()
	}

	logger, file := newLogger(opts)
	DefaultLoggingService = &LoggingService{
		Logger: logger,
		file:   file,
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file of the global logger
func Close() error {
	initMu.Lock()
	defer initMu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	err := DefaultLoggingService.file.Close()
	DefaultLoggingService.file = nil
	return err
}

// GetConsoleLogLevel picks the console level for an environment.
// Tests stay quiet unless verbose; an explicit LOG_LEVEL wins elsewhere.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or slog's default before initialization
func Logger() *slog.Logger {
	if l := current(); l != nil {
		return l
	}
	return slog.Default()
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if l := current(); l != nil {
		l.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if l := current(); l != nil {
		l.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if l := current(); l != nil {
		l.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if l := current(); l != nil {
		l.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
