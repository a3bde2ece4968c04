// Package logger provides the process-wide structured logger with file
// rotation support.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		FilePath:   "log/svcrunner/svcrunner.log",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    false,
	}
}

var (
	mu           sync.Mutex
	globalLogger zerolog.Logger
	serviceMode  bool
	prevFile     io.Closer
	prevConsole  *asyncWriter
)

// SetServiceMode suppresses console output regardless of configuration.
// A service process has no console; writing to a dead stdout handle can
// block or fail on Windows.
func SetServiceMode(on bool) {
	mu.Lock()
	serviceMode = on
	mu.Unlock()
}

// Init initializes the global logger. Safe to call again for hot reload;
// writers from the previous call are closed.
func Init(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	mu.Lock()
	defer mu.Unlock()

	if prevFile != nil {
		prevFile.Close()
		prevFile = nil
	}
	if prevConsole != nil {
		prevConsole.Close()
		prevConsole = nil
	}

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		fw := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		prevFile = fw
		writers = append(writers, fw)
	}

	if cfg.Console && !serviceMode {
		cw := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		// Async so a blocked stdout (Windows Quick Edit selection) cannot
		// stall file logging.
		aw := newAsyncWriter(cw, 1000)
		prevConsole = aw
		writers = append(writers, aw)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(output).With().Timestamp().Caller().Logger()
	return nil
}

// Logger returns the global logger instance.
func Logger() *zerolog.Logger {
	return &globalLogger
}

// Debug logs a debug message.
func Debug() *zerolog.Event { return globalLogger.Debug() }

// Info logs an info message.
func Info() *zerolog.Event { return globalLogger.Info() }

// Warn logs a warning message.
func Warn() *zerolog.Event { return globalLogger.Warn() }

// Error logs an error message.
func Error() *zerolog.Event { return globalLogger.Error() }

// Fatal logs a fatal message and exits.
func Fatal() *zerolog.Event { return globalLogger.Fatal() }

// WithComponent returns a logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
