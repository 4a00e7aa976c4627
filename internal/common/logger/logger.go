// Package logger provides structured logging built on zap.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	OutputPath string // defaults to stdout
}

// Logger wraps zap.Logger so callers depend on this package, not zap's constructors.
type Logger struct {
	*zap.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// NewLogger creates a logger from the given configuration.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = "json"
	if cfg.Format == "console" {
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	output := cfg.OutputPath
	if output == "" {
		output = "stdout"
	}
	zapCfg.OutputPaths = []string{output}
	zapCfg.ErrorOutputPaths = []string{output}

	zl, err := zapCfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{Logger: zl}, nil
}

// NewNop returns a logger that discards everything. Intended for tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// SetDefault installs the process-wide default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// Default returns the process-wide default logger, or a no-op logger if none was set.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultLogger == nil {
		return NewNop()
	}
	return defaultLogger
}

// With returns a child logger with the given fields attached.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
